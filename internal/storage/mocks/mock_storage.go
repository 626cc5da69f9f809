// Package mocks provides a testify mock of the backup mirror.
package mocks

import (
	"context"
	"io"

	"netmri-backup/internal/storage/types"

	"github.com/stretchr/testify/mock"
)

var _ types.ObjectStorage = (*MockObjectStorage)(nil)

// MockObjectStorage records mirror uploads.
type MockObjectStorage struct {
	mock.Mock
}

// Put mocks the Put method
func (m *MockObjectStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	args := m.Called(ctx, bucket, key, reader, metadata)
	return args.Error(0)
}
