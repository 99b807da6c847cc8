package status

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// Store maps container identities to their update status. All methods are
// safe for concurrent use; writes are last-write-wins per identity with
// no merging of partial updates.
type Store struct {
	mu       sync.RWMutex
	statuses map[types.ContainerID]types.UpdateStatus
}

// NewStore creates an empty status store.
func NewStore() *Store {
	return &Store{
		statuses: make(map[types.ContainerID]types.UpdateStatus),
	}
}

// Update overwrites the status for one identity.
//
// Parameters:
//   - id: Container identity.
//   - update: Full replacement status.
func (s *Store) Update(id types.ContainerID, update types.UpdateStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[id] = update

	logrus.WithFields(logrus.Fields{
		"container_id": id.ShortID(),
		"name":         update.Name,
		"state":        update.State.String(),
	}).Debug("Updated container status")
}

// Get returns the status for one identity.
//
// Returns:
//   - types.UpdateStatus: Stored status, zero value if absent.
//   - bool: True if the identity is known.
func (s *Store) Get(id types.ContainerID) (types.UpdateStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	update, ok := s.statuses[id]

	return update, ok
}

// All returns a snapshot copy of every stored status. Mutating the
// returned map does not affect the store.
func (s *Store) All() map[types.ContainerID]types.UpdateStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[types.ContainerID]types.UpdateStatus, len(s.statuses))
	for id, update := range s.statuses {
		snapshot[id] = update
	}

	return snapshot
}

// EvictMissing removes every stored identity absent from the given set
// and leaves present identities untouched. Called once per full inventory
// pass; this is how destroyed containers disappear from the dashboard.
//
// Parameters:
//   - current: Identities enumerated by the latest full pass.
//
// Returns:
//   - int: Number of evicted identities.
func (s *Store) EvictMissing(current []types.ContainerID) int {
	present := make(map[types.ContainerID]struct{}, len(current))
	for _, id := range current {
		present[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0

	for id := range s.statuses {
		if _, ok := present[id]; !ok {
			delete(s.statuses, id)

			evicted++

			logrus.WithField("container_id", id.ShortID()).
				Debug("Evicted status for removed container")
		}
	}

	return evicted
}
