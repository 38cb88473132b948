package service

import (
	"sync"

	"github.com/vilaca/branch-dashboard/internal/domain"
)

// RefreshMessage is the notification emitted by every SimulateRefresh call.
const RefreshMessage = "Branches refreshed successfully"

// Notifier receives the notification produced by a refresh.
// notify.Queue satisfies it.
type Notifier interface {
	Enqueue(message string, typ domain.NotificationType) string
}

// BranchStore holds one ordered snapshot of branch records.
// The snapshot is never mutated in place; a refresh swaps in a new slice.
type BranchStore struct {
	mu       sync.RWMutex
	branches []domain.Branch
	sentinel string
}

// NewBranchStore creates a store over a private copy of records.
// An empty sentinel falls back to domain.DefaultRefreshSentinel.
func NewBranchStore(records []domain.Branch, sentinel string) *BranchStore {
	if sentinel == "" {
		sentinel = domain.DefaultRefreshSentinel
	}
	branches := make([]domain.Branch, len(records))
	copy(branches, records)
	return &BranchStore{
		branches: branches,
		sentinel: sentinel,
	}
}

// Branches returns the records in load order. The caller owns the returned slice.
func (s *BranchStore) Branches() []domain.Branch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Branch, len(s.branches))
	copy(out, s.branches)
	return out
}

// Len returns the number of records.
func (s *BranchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.branches)
}

// Sentinel returns the name of the record toggled by SimulateRefresh.
func (s *BranchStore) Sentinel() string {
	return s.sentinel
}

// SimulateRefresh toggles the sentinel record between building and success and
// always emits one success notification through n.
// It reports whether a record changed; a missing or failed sentinel is left alone.
func (s *BranchStore) SimulateRefresh(n Notifier) bool {
	changed := s.toggleSentinel()
	if n != nil {
		n.Enqueue(RefreshMessage, domain.NotificationSuccess)
	}
	return changed
}

func (s *BranchStore) toggleSentinel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, b := range s.branches {
		if b.Name != s.sentinel {
			continue
		}

		var next domain.Status
		switch b.Status {
		case domain.StatusBuilding:
			next = domain.StatusSuccess
		case domain.StatusSuccess:
			next = domain.StatusBuilding
		default:
			return false
		}

		updated := make([]domain.Branch, len(s.branches))
		copy(updated, s.branches)
		updated[i] = b.WithStatus(next)
		s.branches = updated
		return true
	}

	return false
}
