package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dialogos/model"
	"dialogos/platform"
)

type stubCompleter struct {
	reply    string
	err      error
	lastReq  CompletionRequest
	numCalls int
}

func (s *stubCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	s.lastReq = req
	s.numCalls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Conversation{}, &model.Message{}))
	platform.DB = db
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestService(t *testing.T, completer Completer) *DialogueService {
	t.Helper()
	personas, err := LoadPersonas("", "socrates")
	require.NoError(t, err)
	config := platform.Config{
		MaxHistoryMsgs:  20,
		MaxHistoryItems: 10,
		LLMTimeout:      time.Second,
	}
	return NewDialogueService(&UserService{}, personas, completer, config)
}

func identityFor(subject string) *Identity {
	return &Identity{Subject: subject, Email: subject + "@example.com", EmailVerified: true}
}

func TestExchangeRejectsEmptyHistory(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(t, &stubCompleter{reply: "r"})

	_, err := svc.Exchange(context.Background(), nil, DialogueRequest{}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestExchangeGuestGetsReplyWithoutPersistence(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{reply: "What do you mean by virtue?"}
	svc := newTestService(t, stub)

	result, err := svc.Exchange(context.Background(), nil, DialogueRequest{
		History: []Turn{{Role: "user", Content: "Is courage a virtue?"}},
	}, "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "What do you mean by virtue?", result.Response)
	assert.Nil(t, result.ConversationID)

	count, err := model.CountConversations()
	require.NoError(t, err)
	assert.Zero(t, count)

	// guests are attributed by connection address
	assert.Equal(t, "guest_session_10.0.0.7", stub.lastReq.User)
}

func TestExchangeCreatesConversationForNewSession(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{reply: "And what is courage, in your view?"}
	svc := newTestService(t, stub)

	result, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History: []Turn{{Role: "user", Content: "Is courage a virtue?"}},
	}, "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, result.ConversationID)
	assert.Equal(t, "socrates", result.PersonaID)

	count, err := model.CountConversations()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	user, err := model.GetUserBySubject("uid-1")
	require.NoError(t, err)
	conv, err := model.FindOwnedConversation(*result.ConversationID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Is courage a virtue?", conv.Title)

	messages, err := model.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Is courage a virtue?", messages[0].Content)
	assert.Equal(t, "And what is courage, in your view?", messages[1].Content)
}

func TestExchangeAppendsToExplicitConversation(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{reply: "reply"}
	svc := newTestService(t, stub)
	identity := identityFor("uid-1")

	first, err := svc.Exchange(context.Background(), identity, DialogueRequest{
		History: []Turn{{Role: "user", Content: "opening"}},
	}, "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, first.ConversationID)

	second, err := svc.Exchange(context.Background(), identity, DialogueRequest{
		History: []Turn{
			{Role: "user", Content: "opening"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "follow-up"},
		},
		ConversationID: first.ConversationID,
	}, "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, second.ConversationID)
	assert.Equal(t, *first.ConversationID, *second.ConversationID)

	count, err := model.CountConversations()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "explicit id must never spawn a second conversation")
}

func TestExchangeUnknownConversationStartsFresh(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(t, &stubCompleter{reply: "reply"})

	missing := uint(9999)
	result, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History:        []Turn{{Role: "user", Content: "hello"}},
		ConversationID: &missing,
	}, "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, result.ConversationID)
	assert.NotEqual(t, missing, *result.ConversationID)
}

func TestExchangeForeignConversationStartsFresh(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(t, &stubCompleter{reply: "reply"})

	owned, err := svc.Exchange(context.Background(), identityFor("uid-owner"), DialogueRequest{
		History: []Turn{{Role: "user", Content: "mine"}},
	}, "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, owned.ConversationID)

	// another user naming that id gets their own conversation, not access
	stolen, err := svc.Exchange(context.Background(), identityFor("uid-intruder"), DialogueRequest{
		History:        []Turn{{Role: "user", Content: "theirs"}},
		ConversationID: owned.ConversationID,
	}, "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, stolen.ConversationID)
	assert.NotEqual(t, *owned.ConversationID, *stolen.ConversationID)
}

func TestExchangeWindowsLongHistory(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{reply: "reply"}
	svc := newTestService(t, stub)

	var history []Turn
	for i := 0; i < 25; i++ {
		history = append(history, Turn{Role: "user", Content: fmt.Sprintf("turn-%d", i)})
	}
	_, err := svc.Exchange(context.Background(), nil, DialogueRequest{History: history}, "127.0.0.1")
	require.NoError(t, err)

	require.Len(t, stub.lastReq.Turns, 20)
	assert.Equal(t, "turn-5", stub.lastReq.Turns[0].Content)
	assert.Equal(t, "turn-24", stub.lastReq.Turns[19].Content)
	assert.True(t, strings.HasPrefix(stub.lastReq.Directive, "You are Socrates"))
}

func TestExchangeAssistantFinalTurnSkipsPersistence(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{reply: "reply"}
	svc := newTestService(t, stub)

	result, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History: []Turn{
			{Role: "user", Content: "question"},
			{Role: "assistant", Content: "answer"},
		},
	}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "reply", result.Response)
	assert.Nil(t, result.ConversationID)
	assert.Equal(t, 1, stub.numCalls, "the completion call still goes out")

	count, err := model.CountConversations()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExchangeUpstreamFailureLeavesNoTrace(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(t, &stubCompleter{err: fmt.Errorf("%w: completion call failed", ErrUpstream)})

	_, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History: []Turn{{Role: "user", Content: "question"}},
	}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrUpstream)

	count, err := model.CountMessages()
	require.NoError(t, err)
	assert.Zero(t, count, "no partial exchange may be committed on upstream failure")
}

func TestExchangeSurvivesPersistenceFailure(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, &stubCompleter{reply: "reply"})

	// break the message table after user creation works
	require.NoError(t, db.Migrator().DropTable(&model.Message{}))

	result, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History: []Turn{{Role: "user", Content: "question"}},
	}, "127.0.0.1")
	require.NoError(t, err, "storage trouble must not fail the visible response")
	assert.Equal(t, "reply", result.Response)
	assert.Nil(t, result.ConversationID)
}

func TestExchangeUserDirectoryFailureIsHard(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, &stubCompleter{reply: "reply"})

	require.NoError(t, db.Migrator().DropTable(&model.User{}))

	_, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History: []Turn{{Role: "user", Content: "question"}},
	}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInternal)
}

func TestExchangeUsesRequestedPersona(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{reply: "reply"}
	svc := newTestService(t, stub)

	result, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History:   []Turn{{Role: "user", Content: "On duty."}},
		PersonaID: "kant",
	}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "kant", result.PersonaID)
	assert.True(t, strings.HasPrefix(stub.lastReq.Directive, "You are Immanuel Kant"))
}

func TestExchangeUnknownPersonaFallsBack(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{reply: "reply"}
	svc := newTestService(t, stub)

	result, err := svc.Exchange(context.Background(), identityFor("uid-1"), DialogueRequest{
		History:   []Turn{{Role: "user", Content: "hello"}},
		PersonaID: "aristotle",
	}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "socrates", result.PersonaID)
}

func TestExchangeNeverRetriesUpstream(t *testing.T) {
	setupTestDB(t)
	stub := &stubCompleter{err: errors.New("boom")}
	svc := newTestService(t, stub)

	_, err := svc.Exchange(context.Background(), nil, DialogueRequest{
		History: []Turn{{Role: "user", Content: "hello"}},
	}, "127.0.0.1")
	assert.Error(t, err)
	assert.Equal(t, 1, stub.numCalls)
}
