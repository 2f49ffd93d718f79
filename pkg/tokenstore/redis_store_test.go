package tokenstore

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	store := NewRedisTokenStore(&Config{
		Host:   mr.Host(),
		Port:   port,
		Prefix: "authhub",
	})
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRefreshToken_SaveGetDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetRefresh(ctx, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.SaveRefresh(ctx, 1, 100, "token-a", time.Hour))

	got, err = store.GetRefresh(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, "token-a", got)

	require.NoError(t, store.DeleteRefresh(ctx, 1, 100))

	got, err = store.GetRefresh(ctx, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRefreshToken_TenantIsolation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// 同一用户ID在不同租户下互不干扰
	require.NoError(t, store.SaveRefresh(ctx, 1, 100, "tenant1-token", time.Hour))
	require.NoError(t, store.SaveRefresh(ctx, 2, 100, "tenant2-token", time.Hour))

	got1, err := store.GetRefresh(ctx, 1, 100)
	require.NoError(t, err)
	got2, err := store.GetRefresh(ctx, 2, 100)
	require.NoError(t, err)

	assert.Equal(t, "tenant1-token", got1)
	assert.Equal(t, "tenant2-token", got2)

	require.NoError(t, store.DeleteRefresh(ctx, 1, 100))

	got2, err = store.GetRefresh(ctx, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, "tenant2-token", got2)

	// 校验同样按租户隔离：令牌只在签发它的租户下通过
	ok, err := store.VerifyRefresh(ctx, 2, 100, "tenant2-token")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.VerifyRefresh(ctx, 1, 100, "tenant2-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRefresh(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// 无存储令牌时校验失败
	ok, err := store.VerifyRefresh(ctx, 1, 100, "token-a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveRefresh(ctx, 1, 100, "token-a", time.Hour))

	ok, err = store.VerifyRefresh(ctx, 1, 100, "token-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.VerifyRefresh(ctx, 1, 100, "token-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// 空字符串永不匹配
	ok, err = store.VerifyRefresh(ctx, 1, 100, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRefresh_SupersededByRotation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefresh(ctx, 1, 100, "token-old", time.Hour))
	require.NoError(t, store.SaveRefresh(ctx, 1, 100, "token-new", time.Hour))

	// 旧令牌被轮换后立即失效
	ok, err := store.VerifyRefresh(ctx, 1, 100, "token-old")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.VerifyRefresh(ctx, 1, 100, "token-new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBlacklist(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.IsBlacklisted(ctx, 1, "access-token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddToBlacklist(ctx, 1, "access-token", time.Hour))

	ok, err = store.IsBlacklisted(ctx, 1, "access-token")
	require.NoError(t, err)
	assert.True(t, ok)

	// 黑名单检查幂等，不消耗条目
	ok, err = store.IsBlacklisted(ctx, 1, "access-token")
	require.NoError(t, err)
	assert.True(t, ok)

	// 租户隔离
	ok, err = store.IsBlacklisted(ctx, 2, "access-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlacklist_ZeroTTLSkipped(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// 已过期的令牌不入黑名单
	require.NoError(t, store.AddToBlacklist(ctx, 1, "expired-token", 0))

	ok, err := store.IsBlacklisted(ctx, 1, "expired-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlacklist_EntryExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddToBlacklist(ctx, 1, "access-token", time.Minute))

	// 条目TTL到期后随令牌一起消失
	mr.FastForward(2 * time.Minute)

	ok, err := store.IsBlacklisted(ctx, 1, "access-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevokeAll(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefresh(ctx, 1, 100, "token-a", time.Hour))
	require.NoError(t, store.RevokeAll(ctx, 1, 100))

	got, err := store.GetRefresh(ctx, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "short", TokenPrefix("short"))
	long := "abcdefghijklmnopqrstuvwxyz"
	assert.Equal(t, "abcdefghijklmnopqrst...", TokenPrefix(long))
}
