package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
	"github.com/R3E-Network/agent_studio/internal/app/domain/notification"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/events"
	"github.com/R3E-Network/agent_studio/internal/app/metrics"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Notifier delivers a user notification.
type Notifier interface {
	Notify(ctx context.Context, userID string, typ notification.Type, title, body string) (notification.Notification, error)
}

// Service manages user-owned agents.
type Service struct {
	store     storage.AgentStore
	tools     storage.ToolStore
	notifier  Notifier
	publisher events.Publisher
	log       *logger.Logger
}

// New constructs an agent service.
func New(store storage.AgentStore, tools storage.ToolStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("agents")
	}
	return &Service{store: store, tools: tools, publisher: events.Noop{}, log: log}
}

// AttachDependencies wires optional collaborators.
func (s *Service) AttachDependencies(notifier Notifier, pub events.Publisher) {
	s.notifier = notifier
	if pub != nil {
		s.publisher = pub
	}
}

// Create validates input and stores a new agent owned by userID.
func (s *Service) Create(ctx context.Context, userID string, in agent.Input) (agent.Agent, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return agent.Agent{}, err
	}
	mode, ok := agent.ParseMode(in.Mode)
	if !ok {
		return agent.Agent{}, invalidMode(in.Mode)
	}
	toolIDs, err := s.validateTools(ctx, in.ToolIDs)
	if err != nil {
		return agent.Agent{}, err
	}

	created, err := s.store.CreateAgent(ctx, agent.Agent{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Mode:        mode,
		ToolIDs:     toolIDs,
	})
	if err != nil {
		return agent.Agent{}, svcerrors.Internal("create agent", err)
	}

	s.log.WithField("agent_id", created.ID).
		WithField("user_id", userID).
		WithField("mode", created.Mode).
		Info("agent created")
	metrics.RecordAgentEvent("created")
	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, userID, notification.TypeAgent, "Agent created",
			fmt.Sprintf("Your agent %q is ready.", created.Name)); err != nil {
			s.log.WithError(err).Warn("agent created notification failed")
		}
	}
	events.Emit(ctx, s.publisher, s.log, events.AgentCreated, created)
	return created, nil
}

// Get returns an agent owned by userID. Deleted agents are reported missing
// and agents of other users are forbidden.
func (s *Service) Get(ctx context.Context, userID, id string) (agent.Agent, error) {
	a, err := s.store.GetAgent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return agent.Agent{}, svcerrors.NotFound("agent", id)
	}
	if err != nil {
		return agent.Agent{}, svcerrors.Internal("load agent", err)
	}
	if a.IsDeleted {
		return agent.Agent{}, svcerrors.NotFound("agent", id)
	}
	if a.UserID != userID {
		return agent.Agent{}, svcerrors.Forbidden("agent belongs to another user")
	}
	return a, nil
}

// List returns one page of live agents, newest first.
func (s *Service) List(ctx context.Context, userID string, req paging.Request) (paging.Result[agent.Agent], error) {
	page, err := req.Normalize()
	if err != nil {
		return paging.Result[agent.Agent]{}, svcerrors.BadRequest(err.Error())
	}
	items, total, err := s.store.ListAgents(ctx, userID, page)
	if err != nil {
		return paging.Result[agent.Agent]{}, svcerrors.Internal("list agents", err)
	}
	if items == nil {
		items = []agent.Agent{}
	}
	return paging.Result[agent.Agent]{Data: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, userID, id string, patch agent.Patch) (agent.Agent, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return agent.Agent{}, err
	}
	if patch.Empty() {
		return a, nil
	}

	if patch.Name != nil {
		name, err := validateName(*patch.Name)
		if err != nil {
			return agent.Agent{}, err
		}
		a.Name = name
	}
	if patch.Description != nil {
		a.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Mode != nil {
		mode, ok := agent.ParseMode(*patch.Mode)
		if !ok || strings.TrimSpace(*patch.Mode) == "" {
			return agent.Agent{}, invalidMode(*patch.Mode)
		}
		a.Mode = mode
	}
	if patch.ToolIDs != nil {
		toolIDs, err := s.validateTools(ctx, *patch.ToolIDs)
		if err != nil {
			return agent.Agent{}, err
		}
		a.ToolIDs = toolIDs
	}

	updated, err := s.store.UpdateAgent(ctx, a)
	if err != nil {
		return agent.Agent{}, svcerrors.Internal("update agent", err)
	}
	s.log.WithField("agent_id", id).WithField("user_id", userID).Info("agent updated")
	metrics.RecordAgentEvent("updated")
	events.Emit(ctx, s.publisher, s.log, events.AgentUpdated, updated)
	return updated, nil
}

// Delete soft-deletes an agent. Deleting twice reports the agent missing.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	err := s.store.SoftDeleteAgent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return svcerrors.NotFound("agent", id)
	}
	if err != nil {
		return svcerrors.Internal("delete agent", err)
	}
	s.log.WithField("agent_id", id).WithField("user_id", userID).Info("agent deleted")
	metrics.RecordAgentEvent("deleted")
	events.Emit(ctx, s.publisher, s.log, events.AgentDeleted, map[string]string{"id": id, "userId": userID})
	return nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", svcerrors.Validation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > agent.MaxNameLength {
		return "", svcerrors.Validation("name", fmt.Sprintf("name must be at most %d characters", agent.MaxNameLength))
	}
	return name, nil
}

func invalidMode(raw string) error {
	return svcerrors.Validation("mode", "mode must be PERFORMANCE or EFFICIENCY").WithDetails("value", raw)
}

func (s *Service) validateTools(ctx context.Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s.tools != nil {
			if _, err := s.tools.GetTool(ctx, id); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, svcerrors.Validation("toolIds", "unknown tool").WithDetails("toolId", id)
				}
				return nil, svcerrors.Internal("load tool", err)
			}
		}
		out = append(out, id)
	}
	return out, nil
}
