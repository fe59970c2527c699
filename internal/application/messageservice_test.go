package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/supportdesk/internal/application"
	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

type messageFixture struct {
	*agentFixture
	messages *application.MessageService
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()

	f := &messageFixture{agentFixture: newAgentFixture(t, 4)}
	f.messages = application.NewMessageService(f.svc, f.sessions, f.threads, f.agent, f.llm, discardLogger())
	return f
}

func TestMessageService_WidgetFlow(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	session, err := f.messages.CreateContactSession(ctx, "org_1", "Ada", "ada@example.com", map[string]string{"plan": "pro"})
	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.After(session.CreatedAt))

	conv, err := f.messages.StartConversation(ctx, "org_1", session.ID)
	require.NoError(t, err)

	f.llm.replies = []driven.Completion{{Text: "Hi Ada!"}}
	msg, reply, err := f.messages.SendUserMessage(ctx, "org_1", conv.ID, session.ID, "Hello")
	require.NoError(t, err)

	assert.Equal(t, model.RoleUser, msg.Role)
	require.NotNil(t, reply)
	assert.Equal(t, "Hi Ada!", reply.Content)
	assert.Len(t, f.threads.thread(conv.ThreadID), 2)
}

func TestMessageService_ResolvedRejectsUntilReopened(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	conv := f.conversation(t, "org_1")
	op := operator("org_1")

	_, err := f.svc.UpdateStatus(ctx, op, conv.ID, model.StatusResolved, 0)
	require.NoError(t, err)

	_, err = f.messages.CreateOperatorMessage(ctx, op, conv.ID, "hello")
	require.ErrorIs(t, err, model.ErrConversationResolved)
	_, _, err = f.messages.SendUserMessage(ctx, "org_1", conv.ID, conv.ContactSessionID, "hello")
	require.ErrorIs(t, err, model.ErrConversationResolved)
	assert.Empty(t, f.threads.thread(conv.ThreadID))

	_, err = f.svc.UpdateStatus(ctx, op, conv.ID, model.StatusUnresolved, 0)
	require.NoError(t, err)

	msg, err := f.messages.CreateOperatorMessage(ctx, op, conv.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, "Operator", msg.AgentName)
}

func TestMessageService_EscalatedConversationSkipsAgent(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	conv := f.conversation(t, "org_1")

	_, err := f.svc.Escalate(ctx, conv.ThreadID)
	require.NoError(t, err)

	msg, reply, err := f.messages.SendUserMessage(ctx, "org_1", conv.ID, conv.ContactSessionID, "anyone there?")
	require.NoError(t, err)
	assert.Equal(t, "anyone there?", msg.Content)
	assert.Nil(t, reply)
	assert.Empty(t, f.llm.requests)
}

func TestMessageService_AgentFailureKeepsStoredMessage(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	conv := f.conversation(t, "org_1")
	f.llm.err = errors.New("model unavailable")

	msg, reply, err := f.messages.SendUserMessage(ctx, "org_1", conv.ID, conv.ContactSessionID, "hello?")
	require.NoError(t, err)
	assert.Equal(t, "hello?", msg.Content)
	assert.NotZero(t, msg.ID)
	assert.Nil(t, reply)
	assert.Len(t, f.threads.thread(conv.ThreadID), 1)
}

func TestMessageService_SendUserMessageRequiresOwningSession(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	conv := f.conversation(t, "org_1")
	f.session(t, "cs_intruder", "org_1")

	_, _, err := f.messages.SendUserMessage(ctx, "org_1", conv.ID, "cs_intruder", "hi")
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, _, err = f.messages.SendUserMessage(ctx, "org_2", conv.ID, conv.ContactSessionID, "hi")
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestMessageService_OperatorMessageCrossOrganization(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	conv := f.conversation(t, "org_1")

	_, err := f.messages.CreateOperatorMessage(ctx, operator("org_2"), conv.ID, "hello")
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.messages.List(ctx, operator("org_2"), conv.ThreadID, 0, 10)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.messages.List(ctx, nil, conv.ThreadID, 0, 10)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestMessageService_ListPaginates(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	conv := f.conversation(t, "org_1")
	op := operator("org_1")

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.messages.CreateOperatorMessage(ctx, op, conv.ID, text)
		require.NoError(t, err)
	}

	page, err := f.messages.List(ctx, op, conv.ThreadID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.NotZero(t, page.NextCursor)

	rest, err := f.messages.List(ctx, op, conv.ThreadID, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, rest.Messages, 1)
	assert.Equal(t, "three", rest.Messages[0].Content)
	assert.Zero(t, rest.NextCursor)
}

func TestMessageService_EnhanceResponse(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	f.llm.replies = []driven.Completion{{Text: "Thank you for reaching out."}}

	text, err := f.messages.EnhanceResponse(ctx, operator("org_1"), "thx")
	require.NoError(t, err)
	assert.Equal(t, "Thank you for reaching out.", text)

	require.Len(t, f.llm.requests, 1)
	assert.Contains(t, f.llm.requests[0].System, "Refine the operator's message")
	assert.Equal(t, "thx", f.llm.requests[0].Messages[0].Content)

	_, err = f.messages.EnhanceResponse(ctx, nil, "thx")
	require.ErrorIs(t, err, model.ErrUnauthorized)
}
