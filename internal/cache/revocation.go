package cache

import (
	"context"
	"errors"
	"time"
)

const revokedPrefix = "session:revoked:"

// RevocationList keeps logged-out token ids until the token would have expired anyway.
type RevocationList struct {
	cache Cache
}

func NewRevocationList(c Cache) *RevocationList {
	return &RevocationList{cache: c}
}

func (r *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, revokedPrefix+tokenID, "1", ttl)
}

func (r *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := r.cache.Get(ctx, revokedPrefix+tokenID)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
