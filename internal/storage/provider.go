// Package storage builds the optional object storage mirror.
package storage

import (
	"context"
	"fmt"

	"netmri-backup/internal/config"
	"netmri-backup/internal/observability/types"
	"netmri-backup/internal/storage/adapters/s3"
	storagetypes "netmri-backup/internal/storage/types"
)

// New returns the ObjectStorage selected by cfg.Provider, or nil when no
// mirror is configured.
func New(ctx context.Context, cfg *config.StorageConfig, logger types.Logger, metrics types.Metrics) (storagetypes.ObjectStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "s3":
		client, err := s3.NewClient(ctx, cfg, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}
