package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/supportdesk/internal/application"
	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

type conversationFixture struct {
	convs    *mockConversationStore
	sessions *mockSessionStore
	svc      *application.ConversationService
}

func newConversationFixture(t *testing.T) *conversationFixture {
	t.Helper()

	f := &conversationFixture{
		convs:    newMockConversationStore(),
		sessions: newMockSessionStore(),
	}
	f.svc = application.NewConversationService(f.convs, f.sessions, discardLogger())
	return f
}

func (f *conversationFixture) session(t *testing.T, id, org string) {
	t.Helper()
	_, err := f.sessions.Create(context.Background(), model.ContactSession{
		ID:             id,
		OrganizationID: org,
		Name:           "Visitor",
		Email:          "visitor@example.com",
		ExpiresAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
}

func (f *conversationFixture) conversation(t *testing.T, org string) model.Conversation {
	t.Helper()
	sessionID := "cs_" + org
	f.session(t, sessionID, org)
	conv, err := f.svc.Create(context.Background(), org, sessionID)
	require.NoError(t, err)
	return conv
}

func TestConversationService_CreateStartsUnresolved(t *testing.T) {
	f := newConversationFixture(t)

	conv := f.conversation(t, "org_1")

	assert.Equal(t, model.StatusUnresolved, conv.Status)
	assert.NotEmpty(t, conv.ID)
	assert.NotEmpty(t, conv.ThreadID)
	assert.NotEqual(t, conv.ID, conv.ThreadID)
	assert.Equal(t, "org_1", conv.OrganizationID)
}

func TestConversationService_CreateRejectsForeignOrExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newConversationFixture(t)
	f.session(t, "cs_other", "org_2")

	_, err := f.svc.Create(ctx, "org_1", "cs_other")
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.sessions.Create(ctx, model.ContactSession{ID: "cs_old", OrganizationID: "org_1", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "org_1", "cs_old")
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.svc.Create(ctx, "org_1", "cs_missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestConversationService_UpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newConversationFixture(t)
	conv := f.conversation(t, "org_1")
	id := operator("org_1")

	escalated, err := f.svc.UpdateStatus(ctx, id, conv.ID, model.StatusEscalated, 0)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalated, escalated.Status)

	resolved, err := f.svc.UpdateStatus(ctx, id, conv.ID, model.StatusResolved, escalated.Version)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, resolved.Status)

	_, err = f.svc.UpdateStatus(ctx, id, conv.ID, model.StatusEscalated, 0)
	require.ErrorIs(t, err, model.ErrInvalidStatusTransition)

	reopened, err := f.svc.UpdateStatus(ctx, id, conv.ID, model.StatusUnresolved, 0)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnresolved, reopened.Status)
}

func TestConversationService_UpdateStatusSameStatusIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newConversationFixture(t)
	conv := f.conversation(t, "org_1")

	same, err := f.svc.UpdateStatus(ctx, operator("org_1"), conv.ID, model.StatusUnresolved, 0)
	require.NoError(t, err)
	assert.Equal(t, conv.Version, same.Version)
}

func TestConversationService_UpdateStatusStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	f := newConversationFixture(t)
	conv := f.conversation(t, "org_1")

	_, err := f.svc.UpdateStatus(ctx, operator("org_1"), conv.ID, model.StatusEscalated, conv.Version)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, operator("org_1"), conv.ID, model.StatusResolved, conv.Version)
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestConversationService_CrossOrganizationIsUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newConversationFixture(t)
	conv := f.conversation(t, "org_1")

	_, err := f.svc.Get(ctx, operator("org_2"), conv.ID)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.svc.UpdateStatus(ctx, operator("org_2"), conv.ID, model.StatusResolved, 0)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.svc.ContactSession(ctx, operator("org_2"), conv.ID)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	stored, err := f.convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnresolved, stored.Status)
}

func TestConversationService_EscalateRetriesOnceAfterConflict(t *testing.T) {
	ctx := context.Background()
	f := newConversationFixture(t)
	conv := f.conversation(t, "org_1")

	// Another writer touches the row between our read and our swap.
	f.convs.beforeUpdate = func() { f.convs.force(conv.ID, model.StatusUnresolved) }

	escalated, err := f.svc.Escalate(ctx, conv.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalated, escalated.Status)
	assert.Equal(t, int64(3), escalated.Version)
}

func TestConversationService_ResolveUnknownThread(t *testing.T) {
	f := newConversationFixture(t)

	_, err := f.svc.Resolve(context.Background(), "thread_missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestConversationService_ListFiltersByOrganizationAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newConversationFixture(t)
	first := f.conversation(t, "org_1")
	f.conversation(t, "org_2")

	f.session(t, "cs_org_1_b", "org_1")
	second, err := f.svc.Create(ctx, "org_1", "cs_org_1_b")
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, second.ThreadID)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, operator("org_1"), driven.ConversationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unresolved, err := f.svc.List(ctx, operator("org_1"), driven.ConversationFilter{Status: model.StatusUnresolved})
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, first.ID, unresolved[0].ID)
}

func TestConversationService_ContactSession(t *testing.T) {
	f := newConversationFixture(t)
	conv := f.conversation(t, "org_1")

	session, err := f.svc.ContactSession(context.Background(), operator("org_1"), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ContactSessionID, session.ID)
	assert.Equal(t, "visitor@example.com", session.Email)
}
