package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
	"github.com/R3E-Network/agent_studio/internal/app/events"
	notificationsvc "github.com/R3E-Network/agent_studio/internal/app/services/notifications"
	"github.com/R3E-Network/agent_studio/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

func strPtr(s string) *string { return &s }

func TestCreateDefaultsAndNotifies(t *testing.T) {
	store := memory.New()
	notes := notificationsvc.New(store, nil)
	rec := &events.Recorder{}
	svc := New(store, store, nil)
	svc.AttachDependencies(notes, rec)

	rag, err := store.CreateTool(context.Background(), tool.Tool{Name: "rag"})
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}

	created, err := svc.Create(context.Background(), "u1", agent.Input{Name: " helper ", ToolIDs: []string{rag.ID, rag.ID}})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if created.Mode != agent.ModePerformance {
		t.Fatalf("expected default mode PERFORMANCE, got %s", created.Mode)
	}
	if created.Name != "helper" || len(created.ToolIDs) != 1 {
		t.Fatalf("unexpected agent %+v", created)
	}

	count, _ := notes.UnreadCount(context.Background(), "u1")
	if count != 1 {
		t.Fatalf("expected an agent created notification, got %d", count)
	}
	if len(rec.Events()) != 1 || rec.Events()[0].Subject != events.AgentCreated {
		t.Fatalf("expected agent created event, got %+v", rec.Events())
	}
}

func TestCreateValidation(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	cases := []agent.Input{
		{Name: ""},
		{Name: strings.Repeat("x", agent.MaxNameLength+1)},
		{Name: "ok", Mode: "TURBO"},
		{Name: "ok", ToolIDs: []string{"missing"}},
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, "u1", in); !svcerrors.IsCode(err, svcerrors.CodeValidation) {
			t.Fatalf("input %+v: expected validation error, got %v", in, err)
		}
	}

	if _, err := svc.Create(ctx, "u1", agent.Input{Name: "lower", Mode: "efficiency"}); err != nil {
		t.Fatalf("mode should be case insensitive: %v", err)
	}
}

func TestOwnershipAndSoftDelete(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", agent.Input{Name: "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "intruder", created.ID); !svcerrors.IsCode(err, svcerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "intruder", created.ID); !svcerrors.IsCode(err, svcerrors.CodeForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}

	if err := svc.Delete(ctx, "owner", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "owner", created.ID); !svcerrors.IsCode(err, svcerrors.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := svc.Get(ctx, "owner", created.ID); !svcerrors.IsCode(err, svcerrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	page, err := svc.List(ctx, "owner", paging.Request{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 || len(page.Data) != 0 {
		t.Fatalf("deleted agents must not be listed: %+v", page)
	}
}

func TestUpdatePartial(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "u1", agent.Input{Name: "a", Description: "first"})

	updated, err := svc.Update(ctx, "u1", created.ID, agent.Patch{Mode: strPtr("EFFICIENCY")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Mode != agent.ModeEfficiency || updated.Name != "a" || updated.Description != "first" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(ctx, "u1", created.ID, agent.Patch{Mode: strPtr("")}); !svcerrors.IsCode(err, svcerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty mode, got %v", err)
	}
	if _, err := svc.Update(ctx, "u1", created.ID, agent.Patch{Name: strPtr("  ")}); !svcerrors.IsCode(err, svcerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}

	same, err := svc.Update(ctx, "u1", created.ID, agent.Patch{})
	if err != nil || same.ID != created.ID {
		t.Fatalf("empty patch should return agent unchanged: %v", err)
	}
}

func TestListPaging(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, "u1", agent.Input{Name: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := svc.List(ctx, "u1", paging.Request{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 2 || page.Data[0].Name != "c" {
		t.Fatalf("unexpected page %+v", page)
	}
	if _, err := svc.List(ctx, "u1", paging.Request{Limit: 1000}); !svcerrors.IsCode(err, svcerrors.CodeBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}
