// Package testutil provides fixtures shared by package tests: a memory-backed
// application and signed-in users.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	app "github.com/R3E-Network/agent_studio/internal/app"
	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// DefaultPassword is the password used by SignUp.
const DefaultPassword = "password123"

// NewApplication returns a seeded, memory-backed application with no chat
// delay and no background jobs. opts may override the defaults.
func NewApplication(t testing.TB, opts ...func(*app.Options)) *app.Application {
	t.Helper()
	delay := time.Duration(0)
	o := app.Options{SessionSecret: "test-secret", ChatDelay: &delay, DisableJanitor: true}
	for _, opt := range opts {
		opt(&o)
	}
	application, err := app.New(app.Stores{}, logger.NewDiscard(), o)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if _, err := application.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return application
}

// SignUp registers a user with a unique email and returns it with a session
// token.
func SignUp(t testing.TB, application *app.Application, name string) (account.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := application.Users.SignUp(ctx, name, UniqueEmail(name), DefaultPassword)
	if err != nil {
		t.Fatalf("sign up %s: %v", name, err)
	}
	token, _, err := application.Sessions.Create(ctx, user.ID, "127.0.0.1", "testutil")
	if err != nil {
		t.Fatalf("create session for %s: %v", name, err)
	}
	return user, token
}

// UniqueEmail derives a unique address from prefix.
func UniqueEmail(prefix string) string {
	local := strings.ToLower(strings.Join(strings.Fields(prefix), "."))
	if local == "" {
		local = "user"
	}
	return local + "+" + uuid.NewString()[:8] + "@example.com"
}
