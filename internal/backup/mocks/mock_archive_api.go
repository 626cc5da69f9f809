package mocks

import (
	"context"

	"netmri-backup/internal/netmri"

	"github.com/stretchr/testify/mock"
)

// MockArchiveAPI is a mock implementation of backup.ArchiveAPI
type MockArchiveAPI struct {
	mock.Mock
}

// CreateArchive mocks the CreateArchive method
func (m *MockArchiveAPI) CreateArchive(ctx context.Context, req netmri.ArchiveRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// DownloadArchive mocks the DownloadArchive method
func (m *MockArchiveAPI) DownloadArchive(ctx context.Context, dir string) (*netmri.DownloadResult, error) {
	args := m.Called(ctx, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*netmri.DownloadResult), args.Error(1)
}

// DownloadArchiveChecksum mocks the DownloadArchiveChecksum method
func (m *MockArchiveAPI) DownloadArchiveChecksum(ctx context.Context, dir string) (*netmri.DownloadResult, error) {
	args := m.Called(ctx, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*netmri.DownloadResult), args.Error(1)
}

// RemoveArchive mocks the RemoveArchive method
func (m *MockArchiveAPI) RemoveArchive(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
