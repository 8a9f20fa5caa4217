package onboarding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

func TestGetBeforeSave(t *testing.T) {
	svc := New(memory.New(), nil)
	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.False(t, p.Completed())
}

func TestSaveKeepsFirstCompletion(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	first, err := svc.Save(ctx, "u1", onboarding.Profile{Role: "engineer", UseCase: "support bots"})
	require.NoError(t, err)
	require.True(t, first.Completed())

	second, err := svc.Save(ctx, "u1", onboarding.Profile{Role: "lead", UseCase: "research", UserID: "spoofed"})
	require.NoError(t, err)
	assert.Equal(t, "u1", second.UserID)
	assert.Equal(t, "lead", second.Role)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt))
}

func TestSaveValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	_, err := svc.Save(context.Background(), "u1", onboarding.Profile{UseCase: "x"})
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeValidation))
	_, err = svc.Save(context.Background(), "u1", onboarding.Profile{Role: "x"})
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeValidation))
}
