package testdoubles

import (
	"context"
	"sync"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// WatchdogStub is a programmable SnapshotWatchdog. Tests queue dataset
// handles (or an error) and the stub hands them out in order; once the queue
// is drained, HasNewRegion turns false and loads report "overtaken".
type WatchdogStub struct {
	mu        sync.Mutex
	pending   []*routing.DatasetHandle
	loadErr   error
	loadCalls int
}

// NewWatchdogStub creates a stub with the given handles queued for loading.
func NewWatchdogStub(handles ...*routing.DatasetHandle) *WatchdogStub {
	return &WatchdogStub{pending: handles}
}

// QueueHandle appends a handle to the load queue.
func (s *WatchdogStub) QueueHandle(handle *routing.DatasetHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, handle)
}

// FailNextLoad makes the next MaybeLoadNewRegion call return err.
func (s *WatchdogStub) FailNextLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

func (s *WatchdogStub) HasNewRegion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending) > 0 || s.loadErr != nil
}

func (s *WatchdogStub) MaybeLoadNewRegion(_ context.Context) (*routing.DatasetHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadCalls++

	if s.loadErr != nil {
		err := s.loadErr
		s.loadErr = nil
		return nil, err
	}

	if len(s.pending) == 0 {
		// Another process already swapped in a newer snapshot.
		return nil, nil
	}

	handle := s.pending[0]
	s.pending = s.pending[1:]

	return handle, nil
}

// LoadCalls returns how often MaybeLoadNewRegion was called.
func (s *WatchdogStub) LoadCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadCalls
}

var _ routing.SnapshotWatchdog = (*WatchdogStub)(nil)
