package app

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/agent_studio/internal/app/core/service"
	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
	"github.com/R3E-Network/agent_studio/internal/app/events"
	"github.com/R3E-Network/agent_studio/internal/app/janitor"
	"github.com/R3E-Network/agent_studio/internal/app/services/agents"
	"github.com/R3E-Network/agent_studio/internal/app/services/apitokens"
	"github.com/R3E-Network/agent_studio/internal/app/services/chat"
	"github.com/R3E-Network/agent_studio/internal/app/services/notifications"
	"github.com/R3E-Network/agent_studio/internal/app/services/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/services/sessions"
	"github.com/R3E-Network/agent_studio/internal/app/services/tools"
	"github.com/R3E-Network/agent_studio/internal/app/services/users"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	"github.com/R3E-Network/agent_studio/internal/app/storage/memory"
	"github.com/R3E-Network/agent_studio/internal/app/system"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Sessions      storage.SessionStore
	Tools         storage.ToolStore
	Agents        storage.AgentStore
	Notifications storage.NotificationStore
	APITokens     storage.APITokenStore
	Onboarding    storage.OnboardingStore
}

// Options tunes services that have runtime settings. The zero value is
// usable: an ephemeral signing key, a one week session, the default chat
// delay and the default janitor schedule.
type Options struct {
	SessionSecret   string
	SessionTTL      time.Duration
	SessionCache    sessions.Cache
	SessionCacheTTL time.Duration
	// Publisher receives domain events. When it also implements
	// system.Service it is started before every other service.
	Publisher       events.Publisher
	ChatDelay       *time.Duration
	JanitorSchedule string
	// DisableJanitor skips the session purge job, for short-lived commands.
	DisableJanitor bool
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Users         *users.Service
	Sessions      *sessions.Service
	Tools         *tools.Service
	Agents        *agents.Service
	Notifications *notifications.Service
	APITokens     *apitokens.Service
	Chat          *chat.Service
	Onboarding    *onboarding.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger, opts Options) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	var mem *memory.Store
	inMemory := func() *memory.Store {
		if mem == nil {
			mem = memory.New()
		}
		return mem
	}
	if stores.Users == nil {
		stores.Users = inMemory()
	}
	if stores.Sessions == nil {
		stores.Sessions = inMemory()
	}
	if stores.Tools == nil {
		stores.Tools = inMemory()
	}
	if stores.Agents == nil {
		stores.Agents = inMemory()
	}
	if stores.Notifications == nil {
		stores.Notifications = inMemory()
	}
	if stores.APITokens == nil {
		stores.APITokens = inMemory()
	}
	if stores.Onboarding == nil {
		stores.Onboarding = inMemory()
	}
	if mem != nil {
		log.Warn("using in-memory stores; data is lost on restart")
	}

	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	chatDelay := chat.DefaultDelay
	if opts.ChatDelay != nil {
		chatDelay = *opts.ChatDelay
	}
	pub := opts.Publisher
	if pub == nil {
		pub = events.Noop{}
	}

	manager := system.NewManager()

	userService := users.New(stores.Users, log.Named("users"))
	sessionService := sessions.New(stores.Sessions, stores.Users, opts.SessionSecret, opts.SessionTTL, log.Named("sessions"))
	if opts.SessionCache != nil {
		sessionService.WithCache(opts.SessionCache, opts.SessionCacheTTL)
	}
	toolService := tools.New(stores.Tools, log.Named("tools"))
	notificationService := notifications.New(stores.Notifications, log.Named("notifications"))
	notificationService.AttachPublisher(pub)
	agentService := agents.New(stores.Agents, stores.Tools, log.Named("agents"))
	agentService.AttachDependencies(notificationService, pub)
	tokenService := apitokens.New(stores.APITokens, log.Named("apitokens"))
	tokenService.AttachPublisher(pub)
	chatService := chat.New(chatDelay, log.Named("chat"))
	onboardingService := onboarding.New(stores.Onboarding, log.Named("onboarding"))

	var services []system.Service
	if svc, ok := pub.(system.Service); ok {
		services = append(services, svc)
	}
	if !opts.DisableJanitor {
		schedule := opts.JanitorSchedule
		if schedule == "" {
			schedule = janitor.DefaultSchedule
		}
		j, err := janitor.New(schedule, sessionService, log.Named("janitor"))
		if err != nil {
			return nil, fmt.Errorf("configure janitor: %w", err)
		}
		services = append(services, j)
	}
	for _, name := range []string{"users", "agents", "notifications", "api-tokens"} {
		services = append(services, system.NoopService{ServiceName: name})
	}

	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:       manager,
		log:           log,
		Users:         userService,
		Sessions:      sessionService,
		Tools:         toolService,
		Agents:        agentService,
		Notifications: notificationService,
		APITokens:     tokenService,
		Chat:          chatService,
		Onboarding:    onboardingService,
	}, nil
}

// Seed installs the default tool catalogue. It is safe to run repeatedly.
func (a *Application) Seed(ctx context.Context) (int, error) {
	added, err := a.Tools.Seed(ctx, tool.Defaults())
	if err != nil {
		return 0, fmt.Errorf("seed tools: %w", err)
	}
	return added, nil
}

// Descriptors describes the domain services and their operations.
func (a *Application) Descriptors() []service.Descriptor {
	return service.Sorted([]service.Descriptor{
		service.Descriptor{Name: "users", Domain: "account"}.WithCapabilities("sign-up", "authenticate", "profile"),
		service.Descriptor{Name: "sessions", Domain: "account"}.WithCapabilities("create", "resolve", "revoke", "purge"),
		service.Descriptor{Name: "tools", Domain: "tool"}.WithCapabilities("list", "create", "delete", "seed"),
		service.Descriptor{Name: "agents", Domain: "agent"}.WithCapabilities("list", "create", "get", "update", "delete"),
		service.Descriptor{Name: "notifications", Domain: "notification"}.WithCapabilities("list", "mark-read", "mark-all-read", "unread-count"),
		service.Descriptor{Name: "api-tokens", Domain: "apitoken"}.WithCapabilities("create", "list", "revoke", "authenticate"),
		service.Descriptor{Name: "chat", Domain: "chat"}.WithCapabilities("stream"),
		service.Descriptor{Name: "onboarding", Domain: "onboarding"}.WithCapabilities("get", "save"),
	})
}

// Services lists the registered lifecycle services in start order.
func (a *Application) Services() []string {
	return a.manager.Services()
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
