package profile

import (
	"context"
	"sync/atomic"
)

// MockFetcher is a ProfileFetcher for tests.
type MockFetcher struct {
	FetchRecentPostsFunc func(ctx context.Context, handle string, count int) ([]string, error)

	calls atomic.Int32
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{}
}

func (m *MockFetcher) FetchRecentPosts(ctx context.Context, handle string, count int) ([]string, error) {
	m.calls.Add(1)
	if m.FetchRecentPostsFunc != nil {
		return m.FetchRecentPostsFunc(ctx, handle, count)
	}
	return nil, ErrNotConfigured
}

func (m *MockFetcher) Calls() int {
	return int(m.calls.Load())
}
