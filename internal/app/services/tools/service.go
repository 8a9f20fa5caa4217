package tools

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
	"github.com/R3E-Network/agent_studio/internal/app/storage"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// Service manages the tool catalogue.
type Service struct {
	store storage.ToolStore
	log   *logger.Logger
}

// New constructs a tool service.
func New(store storage.ToolStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tools")
	}
	return &Service{store: store, log: log}
}

// List returns all tools ordered by name.
func (s *Service) List(ctx context.Context) ([]tool.Tool, error) {
	items, err := s.store.ListTools(ctx)
	if err != nil {
		return nil, svcerrors.Internal("list tools", err)
	}
	return items, nil
}

// Get returns a tool by id.
func (s *Service) Get(ctx context.Context, id string) (tool.Tool, error) {
	t, err := s.store.GetTool(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return tool.Tool{}, svcerrors.NotFound("tool", id)
	}
	if err != nil {
		return tool.Tool{}, svcerrors.Internal("load tool", err)
	}
	return t, nil
}

// Create registers a tool. Names are lower snake case and unique.
func (s *Service) Create(ctx context.Context, name, description string) (tool.Tool, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return tool.Tool{}, svcerrors.Validation("name", "name must be lower snake case, 2-64 characters")
	}
	created, err := s.store.CreateTool(ctx, tool.Tool{Name: name, Description: strings.TrimSpace(description)})
	if errors.Is(err, storage.ErrConflict) {
		return tool.Tool{}, svcerrors.Conflict("tool " + name + " already exists")
	}
	if err != nil {
		return tool.Tool{}, svcerrors.Internal("create tool", err)
	}
	s.log.WithField("tool_id", created.ID).WithField("name", name).Info("tool created")
	return created, nil
}

// Delete removes a tool and detaches it from agents.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteTool(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return svcerrors.NotFound("tool", id)
	}
	if err != nil {
		return svcerrors.Internal("delete tool", err)
	}
	s.log.WithField("tool_id", id).Info("tool deleted")
	return nil
}

// Seed installs the given tools, skipping names that already exist. It
// returns how many were inserted.
func (s *Service) Seed(ctx context.Context, defaults []tool.Tool) (int, error) {
	inserted := 0
	for _, t := range defaults {
		if _, err := s.store.GetToolByName(ctx, t.Name); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return inserted, svcerrors.Internal("seed tools", err)
		}
		if _, err := s.store.CreateTool(ctx, t); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return inserted, svcerrors.Internal("seed tools", err)
		}
		inserted++
	}
	if inserted > 0 {
		s.log.WithField("inserted", inserted).Info("tools seeded")
	}
	return inserted, nil
}

// Exists reports whether every id names a tool. The first missing id is
// returned alongside false.
func (s *Service) Exists(ctx context.Context, ids []string) (string, bool, error) {
	for _, id := range ids {
		if _, err := s.store.GetTool(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return id, false, nil
			}
			return "", false, svcerrors.Internal("load tool", err)
		}
	}
	return "", true, nil
}
