// Package memory is an in-process implementation of every repository the
// clinic core needs, for STORAGE_DRIVER=memory runs and for tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
)

// Store keeps all records behind one mutex. Transactions are serialized and
// journal an undo step per write so a failed transaction leaves no trace.
type Store struct {
	txMu sync.Mutex

	mu            sync.Mutex
	seq           int64
	appointments  map[uuid.UUID]appointment.Appointment
	emergencies   map[uuid.UUID]emergency.Record
	notifications map[uuid.UUID]notification.Notification
	order         map[uuid.UUID]int64
}

func New() *Store {
	return &Store{
		appointments:  make(map[uuid.UUID]appointment.Appointment),
		emergencies:   make(map[uuid.UUID]emergency.Record),
		notifications: make(map[uuid.UUID]notification.Notification),
		order:         make(map[uuid.UUID]int64),
	}
}

type journal struct {
	undo []func()
}

type journalKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested calls join the outer transaction.
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// record registers undo for the write about to happen. Callers hold s.mu.
func (s *Store) record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// next returns a monotonically increasing insertion sequence. Callers hold s.mu.
func (s *Store) next(id uuid.UUID) int64 {
	s.seq++
	s.order[id] = s.seq
	return s.seq
}
