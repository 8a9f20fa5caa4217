package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

type fakeUsers map[string]account.User

func (f fakeUsers) Get(_ context.Context, id string) (account.User, error) {
	if id == "broken" {
		return account.User{}, errors.New("connection reset")
	}
	u, ok := f[id]
	if !ok {
		return account.User{}, svcerrors.NotFound("user", id)
	}
	return u, nil
}

func TestResolveAdmins(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Email: "root@example.com", Name: "Root"}}

	got, err := resolveAdmins(context.Background(), users, []string{"u1", " u1 ", "", "ghost"})
	if err != nil {
		t.Fatalf("resolveAdmins: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %+v", got)
	}
	if !got[0].Found || got[0].Email != "root@example.com" {
		t.Fatalf("unexpected first entry %+v", got[0])
	}
	if got[1].Found || got[1].ID != "ghost" {
		t.Fatalf("unexpected second entry %+v", got[1])
	}

	if _, err := resolveAdmins(context.Background(), users, []string{"broken"}); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestPrintAdmins(t *testing.T) {
	var buf bytes.Buffer
	printAdmins(&buf, nil)
	if !strings.Contains(buf.String(), "no admin users") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	printAdmins(&buf, []adminAccount{{ID: "u1", Email: "a@b.c", Found: true}, {ID: "ghost"}})
	out := buf.String()
	if !strings.Contains(out, "u1") || !strings.Contains(out, "missing") {
		t.Fatalf("unexpected output %q", out)
	}
}
