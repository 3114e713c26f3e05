package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/penstream/broadcast/internal/config"
)

// NewDurable creates the durable tier selected by configuration: a
// relational database ("db", the default) or S3-compatible object storage
// ("s3") for deployments where instances share one cache.
func NewDurable(cfg *config.Config, ttl time.Duration) (Store, error) {
	switch cfg.Storage.Backend {
	case "", "db":
		return OpenDB(&cfg.Database, ttl)
	case "s3":
		store, err := NewS3(&cfg.Storage, ttl)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown durable cache backend %q", cfg.Storage.Backend)
	}
}
