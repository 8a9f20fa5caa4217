package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
	"github.com/R3E-Network/agent_studio/internal/app/domain/notification"
	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/httpapi"
	"github.com/R3E-Network/agent_studio/internal/app/services/chat"
	"github.com/R3E-Network/agent_studio/pkg/logger"
	"github.com/R3E-Network/agent_studio/pkg/testutil"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	application := testutil.NewApplication(t)
	srv := httptest.NewServer(httpapi.NewHandler(application, httpapi.Config{}, logger.NewDiscard()))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	c, err := New(srv.URL, opts)
	require.NoError(t, err)
	return c
}

func TestSessionCookieFlow(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, Options{})
	ctx := context.Background()

	session, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = c.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	res, err := c.SignUp(ctx, "Ada", "ada@example.com", testutil.DefaultPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, me.ID)

	session, err = c.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "ada@example.com", session.User.Email)

	updated, err := c.UpdateProfile(ctx, "Ada L.", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)

	require.NoError(t, c.SignOut(ctx))
	_, err = c.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	_, err = c.SignIn(ctx, "ada@example.com", "wrong-password")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.NotEmpty(t, apiErr.Code)

	_, err = c.SignIn(ctx, "ada@example.com", testutil.DefaultPassword)
	require.NoError(t, err)
	_, err = c.Me(ctx)
	assert.NoError(t, err)
}

func TestAgentsAndNotifications(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, Options{})
	ctx := context.Background()
	_, err := c.SignUp(ctx, "Grace", "grace@example.com", testutil.DefaultPassword)
	require.NoError(t, err)

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tools)

	created, err := c.CreateAgent(ctx, agent.Input{Name: "helper", ToolIDs: []string{tools[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, agent.ModePerformance, created.Mode)
	assert.Equal(t, []string{tools[0].ID}, created.ToolIDs)

	mode := string(agent.ModeEfficiency)
	patched, err := c.UpdateAgent(ctx, created.ID, agent.Patch{Mode: &mode})
	require.NoError(t, err)
	assert.Equal(t, agent.ModeEfficiency, patched.Mode)

	got, err := c.GetAgent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "helper", got.Name)

	page, err := c.ListAgents(ctx, paging.Request{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	unread, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	list, err := c.ListNotifications(ctx, true, paging.Request{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, notification.TypeAgent, list.Data[0].Type)

	marked, err := c.MarkRead(ctx, list.Data[0].ID)
	require.NoError(t, err)
	assert.True(t, marked.IsRead)

	list, err = c.ListNotifications(ctx, true, paging.Request{})
	require.NoError(t, err)
	assert.Empty(t, list.Data)

	n, err := c.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, c.DeleteAgent(ctx, created.ID))
	_, err = c.GetAgent(ctx, created.ID)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestAPITokenAuthentication(t *testing.T) {
	srv := newServer(t)
	owner := newClient(t, srv, Options{})
	ctx := context.Background()
	signed, err := owner.SignUp(ctx, "Linus", "linus@example.com", testutil.DefaultPassword)
	require.NoError(t, err)

	issued, err := owner.CreateToken(ctx, "ci", 7)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Secret)

	tokens, err := owner.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, issued.ID, tokens[0].ID)

	bot := newClient(t, srv, Options{APIToken: issued.Secret})
	me, err := bot.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, me.ID)

	reply, err := bot.Chat(ctx, "any-agent", "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.StubResponse, reply)

	require.NoError(t, owner.RevokeToken(ctx, issued.ID))
	tokens, err = owner.ListTokens(ctx)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	_, err = bot.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestOnboarding(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, Options{})
	ctx := context.Background()
	_, err := c.SignUp(ctx, "Barbara", "barbara@example.com", testutil.DefaultPassword)
	require.NoError(t, err)

	saved, err := c.SaveOnboarding(ctx, onboarding.Profile{Role: "engineer", UseCase: "support"})
	require.NoError(t, err)
	require.NotNil(t, saved.CompletedAt)

	got, err := c.Onboarding(ctx)
	require.NoError(t, err)
	assert.Equal(t, "support", got.UseCase)

	_, err = c.SaveOnboarding(ctx, onboarding.Profile{Role: "engineer"})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url", Options{})
	assert.Error(t, err)
}
