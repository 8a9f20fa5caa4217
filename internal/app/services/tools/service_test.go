package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
	"github.com/R3E-Network/agent_studio/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

func TestSeedIsIdempotent(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	n, err := svc.Seed(ctx, tool.Defaults())
	require.NoError(t, err)
	assert.Equal(t, len(tool.Defaults()), n)

	n, err = svc.Seed(ctx, tool.Defaults())
	require.NoError(t, err)
	assert.Zero(t, n)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, len(tool.Defaults()))
	assert.Equal(t, "code_interpreter", items[0].Name)
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "Web Search", "")
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeValidation))

	created, err := svc.Create(ctx, "web_search", "search")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "web_search", "again")
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeConflict))

	missing, ok, err := svc.Exists(ctx, []string{created.ID, "nope"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "nope", missing)
}

func TestDelete(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "rag", "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	err = svc.Delete(ctx, created.ID)
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeNotFound))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeNotFound))
}
