package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meddiag/platform/pkg/features"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FeatureStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFeatureStore(client, time.Hour), srv
}

func TestFeatureStoreSaveAndLatest(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, features.Diabetes, " Ana@Example.com ", map[string]interface{}{"Glucose": 150.0})
	require.NoError(t, err)
	assert.True(t, srv.Exists("features:DIAB:ana@example.com"))

	got, err := store.Latest(ctx, features.Diabetes, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 150.0, got["Glucose"])

	_, err = store.Latest(ctx, features.Heart, "ana@example.com")
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestFeatureStoreExpires(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, features.Parkinsons, "p@example.com", map[string]interface{}{"fo": 119.9}))
	srv.FastForward(2 * time.Hour)

	_, err := store.Latest(ctx, features.Parkinsons, "p@example.com")
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestFeatureStoreSkipsAnonymous(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, features.Diabetes, "", map[string]interface{}{"Glucose": 1}))
	assert.Empty(t, srv.Keys())

	_, err := store.Latest(ctx, features.Diabetes, "")
	assert.ErrorIs(t, err, ErrNoFeatures)
}
