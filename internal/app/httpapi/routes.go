package httpapi

import (
	"net/http"

	"github.com/R3E-Network/agent_studio/internal/app/core/service"
)

// queryParam documents a query string parameter.
type queryParam struct {
	name        string
	typ         string
	description string
}

// route is one endpoint. The same table drives the router and the OpenAPI
// document.
type route struct {
	method   string
	path     string
	tag      string
	summary  string
	handle   handlerFunc
	public   bool
	admin    bool
	query    []queryParam
	request  string
	response string
	status   int
	text     bool
}

var pageParams = []queryParam{
	{name: "page", typ: "integer", description: "1-based page number (default 1)"},
	{name: "limit", typ: "integer", description: "page size, 1-100 (default 20)"},
}

func (h *handler) routes() []route {
	return []route{
		{method: http.MethodGet, path: "/healthz", tag: "system", summary: "Liveness probe", handle: h.health, public: true, response: "Health", status: http.StatusOK},
		{method: http.MethodGet, path: openAPIPath, tag: "system", summary: "OpenAPI description of this API", handle: h.openAPI, public: true, status: http.StatusOK, text: true},

		{method: http.MethodPost, path: "/api/auth/sign-up/email", tag: "auth", summary: "Create an account and sign in", handle: h.signUp, public: true, request: "SignUpRequest", response: "AuthResponse", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/auth/sign-in/email", tag: "auth", summary: "Sign in with email and password", handle: h.signIn, public: true, request: "SignInRequest", response: "AuthResponse", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/auth/sign-out", tag: "auth", summary: "Revoke the current session", handle: h.signOut, public: true, response: "Success", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/auth/get-session", tag: "auth", summary: "Current session or null", handle: h.getSession, public: true, response: "Session", status: http.StatusOK},

		{method: http.MethodGet, path: "/api/me", tag: "users", summary: "Signed-in user", handle: h.me, response: "User", status: http.StatusOK},
		{method: http.MethodPatch, path: "/api/me", tag: "users", summary: "Update name or image", handle: h.updateMe, request: "ProfileUpdate", response: "User", status: http.StatusOK},

		{method: http.MethodGet, path: "/api/tools", tag: "tools", summary: "List tools", handle: h.listTools, response: "ToolList", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/tools", tag: "tools", summary: "Create a tool", handle: h.createTool, admin: true, request: "ToolInput", response: "Tool", status: http.StatusCreated},
		{method: http.MethodDelete, path: "/api/tools/{id}", tag: "tools", summary: "Delete a tool", handle: h.deleteTool, admin: true, status: http.StatusNoContent},

		{method: http.MethodGet, path: "/api/agents", tag: "agents", summary: "List agents", handle: h.listAgents, query: pageParams, response: "AgentPage", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/agents", tag: "agents", summary: "Create an agent", handle: h.createAgent, request: "AgentInput", response: "Agent", status: http.StatusCreated},
		{method: http.MethodGet, path: "/api/agents/{id}", tag: "agents", summary: "Get an agent", handle: h.getAgent, response: "Agent", status: http.StatusOK},
		{method: http.MethodPatch, path: "/api/agents/{id}", tag: "agents", summary: "Update an agent", handle: h.updateAgent, request: "AgentPatch", response: "Agent", status: http.StatusOK},
		{method: http.MethodDelete, path: "/api/agents/{id}", tag: "agents", summary: "Delete an agent", handle: h.deleteAgent, status: http.StatusNoContent},

		{method: http.MethodGet, path: "/api/notifications", tag: "notifications", summary: "List notifications, newest first", handle: h.listNotifications,
			query:    append(append([]queryParam{}, pageParams...), queryParam{name: "unread", typ: "boolean", description: "only unread notifications"}),
			response: "NotificationPage", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/notifications/unread-count", tag: "notifications", summary: "Number of unread notifications", handle: h.unreadCount, response: "UnreadCount", status: http.StatusOK},
		{method: http.MethodPatch, path: "/api/notifications/{id}/read", tag: "notifications", summary: "Mark a notification read", handle: h.markRead, response: "Notification", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/notifications/read-all", tag: "notifications", summary: "Mark every notification read", handle: h.markAllRead, response: "Updated", status: http.StatusOK},

		{method: http.MethodPost, path: "/api/api-tokens", tag: "api-tokens", summary: "Create an API token", handle: h.createToken, request: "APITokenInput", response: "IssuedAPIToken", status: http.StatusCreated},
		{method: http.MethodGet, path: "/api/api-tokens", tag: "api-tokens", summary: "List active API tokens", handle: h.listTokens, response: "APITokenList", status: http.StatusOK},
		{method: http.MethodDelete, path: "/api/api-tokens/{id}", tag: "api-tokens", summary: "Revoke an API token", handle: h.revokeToken, status: http.StatusNoContent},

		{method: http.MethodPost, path: "/api/chat/stream", tag: "chat", summary: "Send a chat message to an agent", handle: h.chatStream, request: "ChatRequest", status: http.StatusOK, text: true},

		{method: http.MethodGet, path: "/api/onboarding", tag: "onboarding", summary: "Onboarding answers", handle: h.getOnboarding, response: "OnboardingProfile", status: http.StatusOK},
		{method: http.MethodPut, path: "/api/onboarding", tag: "onboarding", summary: "Save onboarding answers", handle: h.saveOnboarding, request: "OnboardingInput", response: "OnboardingProfile", status: http.StatusOK},

		{method: http.MethodGet, path: "/api/admin/audit", tag: "admin", summary: "Recent mutating requests", handle: h.listAudit, admin: true,
			query: []queryParam{{name: "limit", typ: "integer", description: "maximum entries"}}, response: "AuditList", status: http.StatusOK},
	}
}

type healthResponse struct {
	Status   string               `json:"status"`
	Version  string               `json:"version"`
	Services []service.Descriptor `json:"services"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Version:  APIVersion,
		Services: h.app.Descriptors(),
	})
}
