package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dialogos/model"
	"dialogos/service"
)

// HistoryController serves the conversation archive. All routes sit behind
// the required-auth middleware; the read endpoints additionally demand a
// verified email, deletion does not.
type HistoryController struct {
	Users    *service.UserService
	PageSize int
}

// List handles GET /api/history.
func (ctrl HistoryController) List(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}
	if !identity.EmailVerified {
		logger.Warnf("[%s] History access denied for unverified user %s", c.GetString("requestId"), identity.Subject)
		respondError(c, service.ErrForbidden)
		return
	}

	user, err := ctrl.Users.Lookup(identity.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		// Never exchanged anything while signed in; an empty archive, not
		// an error.
		c.JSON(http.StatusOK, gin.H{"history": []gin.H{}})
		return
	}

	conversations, err := model.ListRecentConversations(user.ID, ctrl.PageSize)
	if err != nil {
		logger.Errorf("[%s] Failed to list conversations for user %d: %s", c.GetString("requestId"), user.ID, err)
		respondError(c, service.ErrInternal)
		return
	}

	history := make([]gin.H, 0, len(conversations))
	for _, conv := range conversations {
		title := conv.Title
		if title == "" {
			title = "Conversation from " + conv.CreatedAt.Format("2006-01-02 15:04")
		}
		history = append(history, gin.H{
			"id":         conv.ID,
			"title":      title,
			"updated_at": conv.UpdatedAt,
			"persona_id": conv.PersonaID,
		})
	}
	logger.Infof("[%s] Returning %d conversation summaries for user %d", c.GetString("requestId"), len(history), user.ID)
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Detail handles GET /api/history/:id.
func (ctrl HistoryController) Detail(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}
	if !identity.EmailVerified {
		logger.Warnf("[%s] History access denied for unverified user %s", c.GetString("requestId"), identity.Subject)
		respondError(c, service.ErrForbidden)
		return
	}

	conversationID, ok := conversationParam(c)
	if !ok {
		return
	}

	user, err := ctrl.Users.Lookup(identity.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		respondError(c, service.ErrNotFound)
		return
	}

	conversation, err := model.FindOwnedConversation(conversationID, user.ID)
	if err != nil {
		if errors.Is(err, model.ErrConversationNotFound) {
			respondError(c, service.ErrNotFound)
		} else {
			logger.Errorf("[%s] Conversation lookup failed: %s", c.GetString("requestId"), err)
			respondError(c, service.ErrInternal)
		}
		return
	}

	messages, err := model.ListMessages(conversation.ID)
	if err != nil {
		logger.Errorf("[%s] Failed to list messages for conversation %d: %s", c.GetString("requestId"), conversation.ID, err)
		respondError(c, service.ErrInternal)
		return
	}

	messageList := make([]gin.H, 0, len(messages))
	for _, msg := range messages {
		messageList = append(messageList, gin.H{
			"role":      msg.Role,
			"content":   msg.Content,
			"timestamp": msg.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": messageList, "persona_id": conversation.PersonaID})
}

// Delete handles DELETE /api/history/:id. Deleting twice yields the same
// merged not-found as deleting someone else's conversation.
func (ctrl HistoryController) Delete(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}

	conversationID, ok := conversationParam(c)
	if !ok {
		return
	}

	user, err := ctrl.Users.Lookup(identity.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		respondError(c, service.ErrNotFound)
		return
	}

	if err := model.DeleteConversation(conversationID, user.ID); err != nil {
		if errors.Is(err, model.ErrConversationNotFound) {
			respondError(c, service.ErrNotFound)
		} else {
			logger.Errorf("[%s] Failed to delete conversation %d: %s", c.GetString("requestId"), conversationID, err)
			respondError(c, service.ErrInternal)
		}
		return
	}
	logger.Infof("[%s] Deleted conversation %d for user %d", c.GetString("requestId"), conversationID, user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully."})
}

func conversationParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		logger.Warnf("[%s] Invalid conversation id %q", c.GetString("requestId"), c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return 0, false
	}
	return uint(id), true
}
