package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/features"
	"github.com/redis/go-redis/v9"
)

var ErrNoFeatures = errors.New("no cached features")

// FeatureStore keeps the last submission a patient made per disease so that
// forms can be prefilled on the next visit.
type FeatureStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type cachedSubmission struct {
	Features  map[string]interface{} `json:"features"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func NewFeatureStore(client *redis.Client, ttl time.Duration) *FeatureStore {
	return &FeatureStore{client: client, prefix: "features", ttl: ttl}
}

func (f *FeatureStore) key(code features.Code, email string) string {
	return fmt.Sprintf("%s:%s:%s", f.prefix, code, strings.ToLower(strings.TrimSpace(email)))
}

// Save stores submission for the patient identified by email. Patients
// without an email are not cached.
func (f *FeatureStore) Save(ctx context.Context, code features.Code, email string, submission map[string]interface{}) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	payload, err := json.Marshal(cachedSubmission{Features: submission, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	key := f.key(code, email)
	if err := f.client.Set(ctx, key, payload, f.ttl).Err(); err != nil {
		return fmt.Errorf("caching features: %w", err)
	}
	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(payload),
	}).Debug("Cached submitted features")
	return nil
}

func (f *FeatureStore) Latest(ctx context.Context, code features.Code, email string) (map[string]interface{}, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrNoFeatures
	}
	raw, err := f.client.Get(ctx, f.key(code, email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoFeatures
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached features: %w", err)
	}
	var cached cachedSubmission
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decoding cached features: %w", err)
	}
	return cached.Features, nil
}
