package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceRegistry records consumed wallet signatures so a captured
// message/signature pair cannot be replayed within the verification window.
type NonceRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewNonceRegistry creates a registry whose entries live for ttl, which
// should match the signed-message tolerance window.
func NewNonceRegistry(client *redis.Client, prefix string, ttl time.Duration) *NonceRegistry {
	return &NonceRegistry{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (n *NonceRegistry) redisKey(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return fmt.Sprintf("%s:nonce:%s", n.prefix, hex.EncodeToString(sum[:]))
}

// Consume registers the signature and reports whether it was fresh. A false
// return means the signature was seen before and the request must be
// rejected.
func (n *NonceRegistry) Consume(ctx context.Context, signature string) (bool, error) {
	fresh, err := n.client.SetNX(ctx, n.redisKey(signature), 1, n.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("nonce registry setnx failed: %w", err)
	}
	return fresh, nil
}
