package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const openAPIPath = "/api/openapi.yaml"

// APIVersion is reported in the OpenAPI info block.
const APIVersion = "1.0.0"

type openAPIDocument struct {
	OpenAPI    string                          `yaml:"openapi"`
	Info       openAPIInfo                     `yaml:"info"`
	Paths      map[string]map[string]operation `yaml:"paths"`
	Components components                      `yaml:"components"`
}

type openAPIInfo struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
}

type components struct {
	Schemas         map[string]schema         `yaml:"schemas"`
	SecuritySchemes map[string]securityScheme `yaml:"securitySchemes"`
}

type securityScheme struct {
	Type         string `yaml:"type"`
	Scheme       string `yaml:"scheme,omitempty"`
	BearerFormat string `yaml:"bearerFormat,omitempty"`
	In           string `yaml:"in,omitempty"`
	Name         string `yaml:"name,omitempty"`
}

type operation struct {
	OperationID string                `yaml:"operationId"`
	Summary     string                `yaml:"summary"`
	Tags        []string              `yaml:"tags"`
	Parameters  []parameter           `yaml:"parameters,omitempty"`
	RequestBody *body                 `yaml:"requestBody,omitempty"`
	Responses   map[string]response   `yaml:"responses"`
	Security    []map[string][]string `yaml:"security,omitempty"`
}

type parameter struct {
	Name        string `yaml:"name"`
	In          string `yaml:"in"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description,omitempty"`
	Schema      schema `yaml:"schema"`
}

type body struct {
	Required bool                 `yaml:"required"`
	Content  map[string]mediaType `yaml:"content"`
}

type response struct {
	Description string               `yaml:"description"`
	Content     map[string]mediaType `yaml:"content,omitempty"`
}

type mediaType struct {
	Schema schema `yaml:"schema"`
}

type schema map[string]interface{}

func ref(name string) schema { return schema{"$ref": "#/components/schemas/" + name} }

func str() schema { return schema{"type": "string"} }

func integer() schema { return schema{"type": "integer"} }

func boolean() schema { return schema{"type": "boolean"} }

func dateTime() schema { return schema{"type": "string", "format": "date-time"} }

func arrayOf(item schema) schema { return schema{"type": "array", "items": item} }

func enum(values ...string) schema { return schema{"type": "string", "enum": values} }

func nullable(s schema) schema {
	out := schema{"nullable": true}
	for k, v := range s {
		out[k] = v
	}
	return out
}

// object builds an object schema from alternating property names and
// schemas.
func object(required []string, props ...interface{}) schema {
	properties := make(map[string]schema, len(props)/2)
	for i := 0; i+1 < len(props); i += 2 {
		properties[props[i].(string)] = props[i+1].(schema)
	}
	s := schema{"type": "object", "properties": properties}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func pageOf(item string) schema {
	return object([]string{"data", "total", "page", "limit"},
		"data", arrayOf(ref(item)), "total", integer(), "page", integer(), "limit", integer())
}

func listOf(item string) schema {
	return object([]string{"data"}, "data", arrayOf(ref(item)))
}

func schemas() map[string]schema {
	mode := enum("PERFORMANCE", "EFFICIENCY")
	name := schema{"type": "string", "maxLength": 100}

	out := make(map[string]schema)
	out["Error"] = object([]string{"error"},
		"error", str(), "code", str(), "traceId", str(), "details", schema{"type": "object"})
	out["ServiceDescriptor"] = object([]string{"name", "domain"},
		"name", str(), "domain", str(), "capabilities", arrayOf(str()))
	out["Health"] = object([]string{"status", "version"},
		"status", str(), "version", str(), "services", arrayOf(ref("ServiceDescriptor")))
	out["Success"] = object([]string{"success"}, "success", boolean())
	out["UnreadCount"] = object([]string{"count"}, "count", integer())
	out["Updated"] = object([]string{"updated"}, "updated", integer())

	out["User"] = object([]string{"id", "name", "email"},
		"id", str(), "name", str(), "email", schema{"type": "string", "format": "email"},
		"emailVerified", boolean(), "image", str(), "createdAt", dateTime(), "updatedAt", dateTime())
	out["ProfileUpdate"] = object(nil, "name", str(), "image", str())
	out["SignUpRequest"] = object([]string{"name", "email", "password"},
		"name", str(), "email", str(), "password", schema{"type": "string", "minLength": 8})
	out["SignInRequest"] = object([]string{"email", "password"}, "email", str(), "password", str())
	out["AuthResponse"] = object([]string{"token", "user"}, "token", str(), "user", ref("User"))
	out["Session"] = nullable(object([]string{"session", "user"},
		"session", object([]string{"id", "userId", "expiresAt"},
			"id", str(), "userId", str(), "expiresAt", dateTime(), "ipAddress", str(), "userAgent", str(),
			"createdAt", dateTime(), "updatedAt", dateTime()),
		"user", ref("User")))

	out["Tool"] = object([]string{"id", "name"},
		"id", str(), "name", str(), "description", str(), "createdAt", dateTime(), "updatedAt", dateTime())
	out["ToolInput"] = object([]string{"name"}, "name", str(), "description", str())
	out["ToolList"] = listOf("Tool")

	out["Agent"] = object([]string{"id", "name", "mode"},
		"id", str(), "userId", str(), "name", str(), "description", str(), "mode", mode,
		"toolIds", arrayOf(str()), "createdAt", dateTime(), "updatedAt", dateTime())
	out["AgentInput"] = object([]string{"name"},
		"name", name, "description", str(), "mode", mode, "toolIds", arrayOf(str()))
	out["AgentPatch"] = object(nil,
		"name", name, "description", str(), "mode", mode, "toolIds", arrayOf(str()))
	out["AgentPage"] = pageOf("Agent")

	out["Notification"] = object([]string{"id", "type", "title", "isRead", "createdAt"},
		"id", str(), "userId", str(), "type", enum("system", "agent", "security"),
		"title", str(), "body", str(), "isRead", boolean(), "createdAt", dateTime(), "readAt", dateTime())
	out["NotificationPage"] = pageOf("Notification")

	out["APIToken"] = object([]string{"id", "name", "prefix", "createdAt"},
		"id", str(), "userId", str(), "name", str(), "prefix", str(), "createdAt", dateTime(),
		"lastUsedAt", dateTime(), "expiresAt", dateTime(), "revokedAt", dateTime())
	out["APITokenList"] = listOf("APIToken")
	out["IssuedAPIToken"] = object([]string{"token", "id", "name", "prefix"},
		"token", schema{"type": "string", "description": "raw secret, returned only once"},
		"id", str(), "userId", str(), "name", str(), "prefix", str(), "createdAt", dateTime(), "expiresAt", dateTime())
	out["APITokenInput"] = object([]string{"name"},
		"name", str(), "expiresInDays", schema{"type": "integer", "minimum": 1, "maximum": maxTokenDays})

	out["ChatRequest"] = object([]string{"agentId", "message"}, "agentId", str(), "message", str())

	out["OnboardingProfile"] = object(nil,
		"userId", str(), "role", str(), "useCase", str(), "companySize", str(), "referral", str(),
		"completedAt", dateTime(), "updatedAt", dateTime())
	out["OnboardingInput"] = object([]string{"role", "useCase"},
		"role", str(), "useCase", str(), "companySize", str(), "referral", str())

	out["AuditEntry"] = object(nil,
		"time", dateTime(), "user", str(), "role", str(), "method", str(), "path", str(), "status", integer(),
		"remoteAddr", str(), "userAgent", str(), "traceId", str())
	out["AuditList"] = listOf("AuditEntry")
	return out
}

// buildDocument describes every route in the table.
func buildDocument(routes []route) openAPIDocument {
	doc := openAPIDocument{
		OpenAPI: "3.0.3",
		Info: openAPIInfo{
			Title:       "Agent Studio API",
			Version:     APIVersion,
			Description: "Agents, notifications, API tokens, onboarding and chat for Agent Studio.",
		},
		Paths: make(map[string]map[string]operation),
		Components: components{
			Schemas: schemas(),
			SecuritySchemes: map[string]securityScheme{
				"cookieAuth": {Type: "apiKey", In: "cookie", Name: DefaultCookieName},
				"bearerAuth": {Type: "http", Scheme: "bearer", BearerFormat: "JWT or ast_ API token"},
				"apiKeyAuth": {Type: "apiKey", In: "header", Name: "X-API-Key"},
			},
		},
	}

	for _, rt := range routes {
		op := operation{
			OperationID: operationID(rt.method, rt.path),
			Summary:     rt.summary,
			Tags:        []string{rt.tag},
			Responses:   map[string]response{"default": {Description: "Error", Content: jsonContent(ref("Error"))}},
		}
		if !rt.public {
			op.Security = []map[string][]string{{"cookieAuth": {}}, {"bearerAuth": {}}, {"apiKeyAuth": {}}}
		}
		for _, name := range pathParams(rt.path) {
			op.Parameters = append(op.Parameters, parameter{Name: name, In: "path", Required: true, Schema: str()})
		}
		for _, q := range rt.query {
			op.Parameters = append(op.Parameters, parameter{Name: q.name, In: "query", Description: q.description, Schema: schema{"type": q.typ}})
		}
		if rt.request != "" {
			op.RequestBody = &body{Required: true, Content: jsonContent(ref(rt.request))}
		}

		resp := response{Description: http.StatusText(rt.status)}
		switch {
		case rt.text:
			resp.Content = map[string]mediaType{"text/plain": {Schema: str()}}
		case rt.response != "":
			resp.Content = jsonContent(ref(rt.response))
		}
		op.Responses[strconv.Itoa(rt.status)] = resp

		if doc.Paths[rt.path] == nil {
			doc.Paths[rt.path] = make(map[string]operation)
		}
		doc.Paths[rt.path][strings.ToLower(rt.method)] = op
	}
	return doc
}

func jsonContent(s schema) map[string]mediaType {
	return map[string]mediaType{"application/json": {Schema: s}}
}

func pathParams(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			out = append(out, strings.TrimSuffix(strings.TrimPrefix(part, "{"), "}"))
		}
	}
	return out
}

// operationID turns "GET /api/notifications/{id}/read" into
// "getNotificationsByIdRead".
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.Split(strings.TrimPrefix(path, "/api"), "/") {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "{") {
			part = "by-" + strings.Trim(part, "{}")
		}
		for _, word := range strings.FieldsFunc(part, func(r rune) bool { return r == '-' || r == '_' || r == '.' }) {
			b.WriteString(strings.ToUpper(word[:1]) + word[1:])
		}
	}
	return b.String()
}

// OpenAPIDocument renders the API description as YAML.
func OpenAPIDocument() ([]byte, error) {
	doc := buildDocument((&handler{}).routes())
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}
	return out, nil
}

var (
	openAPIOnce  sync.Once
	openAPIBytes []byte
	openAPIErr   error
)

func (h *handler) openAPI(w http.ResponseWriter, r *http.Request) error {
	openAPIOnce.Do(func() { openAPIBytes, openAPIErr = OpenAPIDocument() })
	if openAPIErr != nil {
		return openAPIErr
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIBytes)
	return nil
}
