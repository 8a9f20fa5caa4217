package testutil

import (
	"context"
	"strings"
	"testing"
)

func TestSignUpReturnsResolvableSession(t *testing.T) {
	application := NewApplication(t)
	user, token := SignUp(t, application, "Ada Lovelace")

	auth, err := application.Sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if auth.User.ID != user.ID {
		t.Fatalf("session user %q, want %q", auth.User.ID, user.ID)
	}
	if !strings.HasPrefix(user.Email, "ada.lovelace+") {
		t.Fatalf("unexpected email %q", user.Email)
	}
	if application.Chat.Delay() != 0 {
		t.Fatalf("expected zero chat delay")
	}
}

func TestUniqueEmail(t *testing.T) {
	if UniqueEmail("x") == UniqueEmail("x") {
		t.Fatalf("emails should differ")
	}
	if !strings.HasPrefix(UniqueEmail(""), "user+") {
		t.Fatalf("empty prefix should fall back to user")
	}
}
