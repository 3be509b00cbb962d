// Package identity provides the anonymous per-device identity used to correlate a
// visitor across reconnects.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	mrand "math/rand/v2"
	"sync"

	"github.com/ashureev/livechat/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// StorageKey is the durable slot holding the device identity.
	StorageKey = "livechat_device_id"

	fingerprintPrefixLen = 12
)

// Provider derives or retrieves the stable device identity.
type Provider struct {
	kv     store.KV
	env    Environment
	random io.Reader
	logger *slog.Logger

	group  singleflight.Group
	mu     sync.Mutex
	cached string
}

// NewProvider creates a Provider backed by kv. The fingerprint is computed from env.
func NewProvider(kv store.KV, env Environment, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		kv:     kv,
		env:    env,
		random: rand.Reader,
		logger: logger,
	}
}

// GetDeviceID returns the device identity, generating and persisting it on first use.
// Concurrent first calls share a single generation. If the store cannot be written the
// identity is still returned and kept for the lifetime of the Provider.
func (p *Provider) GetDeviceID(ctx context.Context) (string, error) {
	p.mu.Lock()
	cached := p.cached
	p.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	v, err, _ := p.group.Do(StorageKey, func() (any, error) {
		return p.loadOrCreate(ctx)
	})
	if err != nil {
		return "", err
	}
	id := v.(string)

	p.mu.Lock()
	p.cached = id
	p.mu.Unlock()
	return id, nil
}

func (p *Provider) loadOrCreate(ctx context.Context) (string, error) {
	if p.kv != nil {
		existing, ok, err := p.kv.Get(ctx, StorageKey)
		switch {
		case err != nil:
			p.logger.Warn("Device identity lookup failed, generating a new one", "error", err)
		case ok && existing != "":
			return existing, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("generate device identity: %w", err)
	}

	id := p.newToken() + "-" + p.env.hash()[:fingerprintPrefixLen]

	if p.kv != nil {
		if err := p.kv.Set(ctx, StorageKey, id); err != nil {
			p.logger.Warn("Failed to persist device identity", "error", err)
		}
	}
	p.logger.Info("Device identity created", "device_id", id)
	return id, nil
}

// newToken returns a version 4 UUID. When the system randomness source fails it falls
// back to a pseudo-random generator with the same layout.
func (p *Provider) newToken() string {
	u, err := uuid.NewRandomFromReader(p.random)
	if err == nil {
		return u.String()
	}
	p.logger.Warn("Secure randomness unavailable, using pseudo-random device token", "error", err)
	return pseudoUUID().String()
}

func pseudoUUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[0:8], mrand.Uint64())
	binary.BigEndian.PutUint64(u[8:16], mrand.Uint64())
	u[6] = (u[6] & 0x0f) | 0x40 // version 4
	u[8] = (u[8] & 0x3f) | 0x80 // variant
	return u
}

func (e Environment) hash() string {
	sum := sha256.Sum256([]byte(e.Fingerprint()))
	return hex.EncodeToString(sum[:])
}
