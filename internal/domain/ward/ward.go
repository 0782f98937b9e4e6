// Package ward holds the in-memory resource state of a running session:
// the bed map and the OPD queue. Both live for the process lifetime and
// reset on restart; bed transitions are shadow-logged into the occupant's
// ledger so history survives the restart even though the map does not.
package ward

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lifeline/lifeline/internal/domain/ledger"
)

// FreeBed marks an unoccupied bed in the map.
const FreeBed = "FREE"

var (
	ErrAlreadyAllocated = errors.New("ward: patient already occupies a bed")
	ErrNoBedsAvailable  = errors.New("ward: all beds are occupied")
	ErrNotAdmitted      = errors.New("ward: patient occupies no bed")
)

// BedStatus is one row of the live bed map.
type BedStatus struct {
	BedID    string `json:"bed_id"`
	Occupant string `json:"occupant"`
}

// Beds is the live bed map. Allocation walks beds in a fixed enumeration
// order and takes the first free one. The mutex is the per-session
// serialization the single-operator original never needed.
type Beds struct {
	mu       sync.Mutex
	order    []string
	occupant map[string]string
	ledger   *ledger.Store
	now      func() time.Time
}

// NewBeds creates count beds named B1..Bn, all free.
func NewBeds(count int, led *ledger.Store) *Beds {
	b := &Beds{
		occupant: make(map[string]string, count),
		ledger:   led,
		now:      time.Now,
	}
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("B%d", i)
		b.order = append(b.order, id)
		b.occupant[id] = FreeBed
	}
	return b
}

// Allocate assigns the first free bed to the patient and logs a
// BED ALLOCATED block to the patient's ledger. The bed map is untouched
// when the patient already holds a bed or no bed is free.
func (b *Beds) Allocate(patientID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, occ := range b.occupant {
		if occ == patientID {
			return "", ErrAlreadyAllocated
		}
	}
	for _, bedID := range b.order {
		if b.occupant[bedID] != FreeBed {
			continue
		}
		ev := ledger.BedEvent{BedNo: bedID, When: b.now().Format(ledger.EventTimeFormat)}
		if err := b.ledger.Append(patientID, ev); err != nil {
			return "", err
		}
		b.occupant[bedID] = patientID
		return bedID, nil
	}
	return "", ErrNoBedsAvailable
}

// Discharge frees the patient's bed and logs a BED DISCHARGED block.
func (b *Beds) Discharge(patientID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dischargeLocked(patientID)
}

func (b *Beds) dischargeLocked(patientID string) (string, error) {
	for _, bedID := range b.order {
		if b.occupant[bedID] != patientID {
			continue
		}
		b.occupant[bedID] = FreeBed
		ev := ledger.BedEvent{Discharged: true, BedNo: bedID, When: b.now().Format(ledger.EventTimeFormat)}
		if err := b.ledger.Append(patientID, ev); err != nil {
			return bedID, err
		}
		return bedID, nil
	}
	return "", ErrNotAdmitted
}

// Release frees the patient's bed without writing a BED DISCHARGED block.
// The billing flow uses it when settlement writes its own discharge note.
func (b *Beds) Release(patientID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bedID := range b.order {
		if b.occupant[bedID] == patientID {
			b.occupant[bedID] = FreeBed
			return bedID, true
		}
	}
	return "", false
}

// BedOf returns the bed the patient currently occupies, if any.
func (b *Beds) BedOf(patientID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bedID := range b.order {
		if b.occupant[bedID] == patientID {
			return bedID, true
		}
	}
	return "", false
}

// Status returns a snapshot of every bed in enumeration order.
func (b *Beds) Status() []BedStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	statuses := make([]BedStatus, 0, len(b.order))
	for _, bedID := range b.order {
		statuses = append(statuses, BedStatus{BedID: bedID, Occupant: b.occupant[bedID]})
	}
	return statuses
}

// Queue is the FIFO OPD waiting list. A patient may appear more than
// once; the queue never persists.
type Queue struct {
	mu  sync.Mutex
	ids []string
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends the patient to the tail. Duplicates are allowed.
func (q *Queue) Enqueue(patientID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, patientID)
}

// CallNext pops the head of the queue. On an empty queue it returns
// ("", false) and leaves the queue untouched.
func (q *Queue) CallNext() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", false
	}
	next := q.ids[0]
	q.ids = q.ids[1:]
	return next, true
}

// Snapshot returns the queued patient ids in order.
func (q *Queue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.ids))
	copy(out, q.ids)
	return out
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}
