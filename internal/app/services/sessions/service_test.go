package sessions

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string]account.Authenticated
	hits  int
}

func (m *mapCache) Get(_ context.Context, key string) (account.Authenticated, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if ok {
		m.hits++
	}
	return v, ok
}

func (m *mapCache) Set(_ context.Context, key string, value account.Authenticated, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

func (m *mapCache) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

func setup(t *testing.T) (*Service, *memory.Store, account.User) {
	t.Helper()
	store := memory.New()
	user, err := store.CreateUser(context.Background(), account.User{Name: "a", Email: "a@example.com"},
		account.Account{ProviderID: account.ProviderCredential, AccountID: "a@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return New(store, store, "test-secret", time.Hour, nil), store, user
}

func TestCreateAndResolve(t *testing.T) {
	svc, _, user := setup(t)
	ctx := context.Background()

	token, sess, err := svc.Create(ctx, user.ID, "127.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.TokenHash != HashToken(token) {
		t.Fatalf("session should store the token hash")
	}

	auth, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if auth.User.ID != user.ID || auth.Session.ID != sess.ID {
		t.Fatalf("unexpected resolution %+v", auth)
	}
}

func TestResolveRejectsForeignSignature(t *testing.T) {
	svc, store, user := setup(t)
	other := New(store, store, "other-secret", time.Hour, nil)

	token, _, err := other.Create(context.Background(), user.ID, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), token); !svcerrors.IsCode(err, svcerrors.CodeInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "garbage"); !svcerrors.IsCode(err, svcerrors.CodeInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestResolveExpired(t *testing.T) {
	svc, _, user := setup(t)
	ctx := context.Background()
	start := time.Now().UTC()
	svc.WithClock(func() time.Time { return start })

	token, _, err := svc.Create(ctx, user.ID, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.WithClock(func() time.Time { return start.Add(2 * time.Hour) })
	if _, err := svc.Resolve(ctx, token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	removed, err := svc.PurgeExpired(ctx, start.Add(2*time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("purge = %d, %v", removed, err)
	}
}

func TestRevoke(t *testing.T) {
	svc, _, user := setup(t)
	ctx := context.Background()
	cache := &mapCache{items: map[string]account.Authenticated{}}
	svc.WithCache(cache, time.Minute)

	token, _, _ := svc.Create(ctx, user.ID, "", "")
	if _, err := svc.Resolve(ctx, token); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := svc.Resolve(ctx, token); err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if cache.hits != 1 {
		t.Fatalf("expected a cache hit on second resolve, got %d", cache.hits)
	}

	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("second revoke should be a no-op: %v", err)
	}
	if _, err := svc.Resolve(ctx, token); !svcerrors.IsCode(err, svcerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized after revoke, got %v", err)
	}
}

func TestRedisCacheIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	cache := NewRedisCache(client, logger.NewDiscard())
	ctx := context.Background()
	want := account.Authenticated{
		Session: account.Session{ID: "s1", UserID: "u1", TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour).UTC()},
		User:    account.User{ID: "u1", Email: "a@example.com"},
	}
	cache.Set(ctx, "h1", want, time.Minute)

	got, ok := cache.Get(ctx, "h1")
	if !ok || got.Session.TokenHash != "h1" || got.User.Email != "a@example.com" {
		t.Fatalf("unexpected cached value %+v ok=%v", got, ok)
	}
	cache.Delete(ctx, "h1")
	if _, ok := cache.Get(ctx, "h1"); ok {
		t.Fatalf("expected miss after delete")
	}
}
