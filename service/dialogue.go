package service

import (
	"context"
	"errors"
	"fmt"

	"dialogos/model"
	"dialogos/platform"
)

// DialogueRequest is the inbound exchange payload after binding.
type DialogueRequest struct {
	History        []Turn `json:"history"`
	ConversationID *uint  `json:"conversation_id"`
	PersonaID      string `json:"persona_id"`
}

// DialogueResult carries the completion text back to the handler, plus the
// conversation identity when the exchange was persisted.
type DialogueResult struct {
	Response       string
	ConversationID *uint
	PersonaID      string
}

// DialogueService sequences one exchange: identity → user record → context
// window → completion call → best-effort persistence.
type DialogueService struct {
	users     *UserService
	personas  *PersonaRegistry
	completer Completer
	config    platform.Config
}

func NewDialogueService(users *UserService, personas *PersonaRegistry, completer Completer, config platform.Config) *DialogueService {
	return &DialogueService{
		users:     users,
		personas:  personas,
		completer: completer,
		config:    config,
	}
}

// Exchange handles one dialogue request. identity may be nil (guest); guests
// get a completion but nothing is persisted. Persistence trouble after a
// successful completion is logged and swallowed: the reply still reaches the
// caller.
func (s *DialogueService) Exchange(ctx context.Context, identity *Identity, req DialogueRequest, remoteAddr string) (*DialogueResult, error) {
	var user *model.User
	if identity != nil {
		var err error
		user, err = s.users.ResolveOrCreate(identity)
		if err != nil {
			return nil, err
		}
	}

	userTag := fmt.Sprintf("guest_session_%s", remoteAddr)
	logTag := "guest user"
	if identity != nil {
		userTag = identity.Subject
		logTag = fmt.Sprintf("user %s", identity.Subject)
	}

	if len(req.History) == 0 {
		logger.Warnf("Missing or empty history from %s", logTag)
		return nil, fmt.Errorf("%w: missing or invalid history", ErrBadRequest)
	}

	// The latest user turn is what seeds the title and gets persisted. A
	// history ending on an assistant turn still goes upstream as supplied,
	// it just leaves nothing to save.
	var latestUserText string
	if last := req.History[len(req.History)-1]; last.Role == model.RoleUser {
		latestUserText = last.Content
	}

	persona := s.personas.Resolve(req.PersonaID)
	windowed := WindowTurns(req.History, s.config.MaxHistoryMsgs)
	if len(windowed) < len(req.History) {
		logger.Infof("History truncated for %s from %d to %d turns", logTag, len(req.History), len(windowed))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.LLMTimeout)
	defer cancel()
	response, err := s.completer.Complete(callCtx, CompletionRequest{
		Directive: persona.Directive,
		Turns:     windowed,
		User:      userTag,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("Received completion for %s (persona %s)", logTag, persona.ID)

	result := &DialogueResult{Response: response}
	if user != nil && latestUserText != "" && response != "" {
		if conversation := s.persistExchange(user, req.ConversationID, persona.ID, latestUserText, response); conversation != nil {
			result.ConversationID = &conversation.ID
			result.PersonaID = conversation.PersonaID
		}
	}
	return result, nil
}

// persistExchange applies the continuation heuristic and commits the two new
// messages. Any failure is logged and absorbed; chat availability outranks
// durability here.
func (s *DialogueService) persistExchange(user *model.User, conversationID *uint, personaID, userText, assistantText string) *model.Conversation {
	if conversationID != nil {
		conversation, err := model.FindOwnedConversation(*conversationID, user.ID)
		switch {
		case err == nil:
			if err := model.AppendExchange(conversation.ID, userText, assistantText); err != nil {
				logger.Errorf("Failed to save exchange to conversation %d: %s", conversation.ID, err)
				return nil
			}
			logger.Infof("Saved exchange to conversation %d for user %d", conversation.ID, user.ID)
			return conversation
		case errors.Is(err, model.ErrConversationNotFound):
			logger.Warnf("Conversation %d not found for user %d, starting a new one", *conversationID, user.ID)
		default:
			logger.Errorf("Conversation lookup failed for user %d: %s", user.ID, err)
			return nil
		}
	}

	conversation, err := model.StartConversation(user.ID, userText, personaID, userText, assistantText)
	if err != nil {
		logger.Errorf("Failed to start conversation for user %d: %s", user.ID, err)
		return nil
	}
	logger.Infof("Started conversation %d for user %d", conversation.ID, user.ID)
	return conversation
}

// Personas exposes the registry for the selection endpoint.
func (s *DialogueService) Personas() *PersonaRegistry {
	return s.personas
}
