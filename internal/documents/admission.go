package documents

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"docsense-backend/internal/shared/metrics"
)

// Admission bounds concurrent ingestions globally and per user. A limit of
// zero disables that bound. Acquisition never blocks.
type Admission struct {
	global  *semaphore.Weighted
	perUser int64

	mu    sync.Mutex
	users map[string]*userSlot
}

type userSlot struct {
	sem  *semaphore.Weighted
	refs int
}

func NewAdmission(global, perUser int) *Admission {
	a := &Admission{
		perUser: int64(perUser),
		users:   make(map[string]*userSlot),
	}
	if global > 0 {
		a.global = semaphore.NewWeighted(int64(global))
	}
	return a
}

// TryAcquire reserves one ingestion slot for userID. The returned release
// must be called exactly once when ok is true.
func (a *Admission) TryAcquire(userID string) (release func(), ok bool) {
	if a == nil {
		return func() {}, true
	}
	if a.global != nil && !a.global.TryAcquire(1) {
		metrics.IncAdmissionRejected()
		return nil, false
	}
	if a.perUser <= 0 {
		return a.releaser(userID, nil), true
	}

	a.mu.Lock()
	slot, exists := a.users[userID]
	if !exists {
		slot = &userSlot{sem: semaphore.NewWeighted(a.perUser)}
		a.users[userID] = slot
	}
	slot.refs++
	a.mu.Unlock()

	if !slot.sem.TryAcquire(1) {
		a.dropRef(userID, slot)
		if a.global != nil {
			a.global.Release(1)
		}
		metrics.IncAdmissionRejected()
		return nil, false
	}
	return a.releaser(userID, slot), true
}

func (a *Admission) releaser(userID string, slot *userSlot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if slot != nil {
				slot.sem.Release(1)
				a.dropRef(userID, slot)
			}
			if a.global != nil {
				a.global.Release(1)
			}
		})
	}
}

func (a *Admission) dropRef(userID string, slot *userSlot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	slot.refs--
	if slot.refs <= 0 && a.users[userID] == slot {
		delete(a.users, userID)
	}
}
