package users

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/agent_studio/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

func newService() *Service {
	return New(memory.New(), nil).WithCost(bcrypt.MinCost)
}

func TestSignUpAndAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	user, err := svc.SignUp(ctx, " Ada ", " ADA@example.com ", "correct horse")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "ada@example.com" || user.Name != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}

	got, err := svc.Authenticate(ctx, "Ada@Example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("authenticated wrong user %s", got.ID)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "a", "a@example.com", "password1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	_, err := svc.SignUp(ctx, "b", "A@example.com", "password2")
	if !svcerrors.IsCode(err, svcerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := newService()
	cases := []struct {
		name, email, password string
	}{
		{"", "a@example.com", "password1"},
		{"a", "not-an-email", "password1"},
		{"a", "a@example.com", "short"},
	}
	for _, tc := range cases {
		_, err := svc.SignUp(context.Background(), tc.name, tc.email, tc.password)
		if !svcerrors.IsCode(err, svcerrors.CodeValidation) {
			t.Fatalf("%+v: expected validation error, got %v", tc, err)
		}
	}
}

func TestAuthenticateRejectsBadCredentialsUniformly(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "a", "a@example.com", "password1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	_, wrongPassword := svc.Authenticate(ctx, "a@example.com", "password2")
	_, unknownEmail := svc.Authenticate(ctx, "b@example.com", "password1")
	for _, err := range []error{wrongPassword, unknownEmail} {
		if !svcerrors.IsCode(err, svcerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("errors should not reveal which part was wrong: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	user, _ := svc.SignUp(ctx, "a", "a@example.com", "password1")

	updated, err := svc.UpdateProfile(ctx, user.ID, "", "https://img.example/a.png")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "a" || updated.Image != "https://img.example/a.png" {
		t.Fatalf("unexpected profile %+v", updated)
	}

	if _, err := svc.UpdateProfile(ctx, "missing", "x", ""); !svcerrors.IsCode(err, svcerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
