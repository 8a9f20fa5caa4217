// Package app composes the agent studio services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── core/service/       # Service descriptors reported by /healthz
//	├── domain/             # Domain models (pure data structures)
//	├── storage/            # Store interfaces plus memory and postgres implementations
//	├── services/           # Business rules: users, sessions, agents, notifications, ...
//	├── httpapi/            # HTTP router, handlers and OpenAPI document
//	├── events/             # Domain event publishing (NATS or no-op)
//	├── janitor/            # Scheduled cleanup jobs
//	├── metrics/            # Prometheus collectors
//	├── runtime/            # Process wiring: config, database, redis, HTTP server
//	└── system/             # Lifecycle manager
//
// # Dependency Direction
//
//	cmd/gateway
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi ──► internal/app (composition)
//	                                                        │
//	                                                        ├──► services ──► storage
//	                                                        └──► system, janitor, events
//
// Services never import the HTTP layer; handlers translate requests into
// service calls and ServiceErrors into responses.
package app
