// Package store persists the entire application state as a single JSON
// snapshot file, mirroring the flat-file database the system has always
// used. Every mutation rewrites the whole file. A single mutex serializes
// the read-modify-write cycle so that check-then-act sequences (such as the
// double-booking check followed by an insert) cannot interleave.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/clinic/reserve/pkg/model"
)

// Snapshot is the full contents of the data file.
type Snapshot struct {
	Appointments []model.Appointment `json:"appointments"`
	BlockedSlots []model.BlockedSlot `json:"blockedSlots"`
	Users        []model.User        `json:"users"`
}

// NextAppointmentID allocates the next appointment id: max existing + 1,
// starting at 1. Deleted records still occupy their ids.
func (s *Snapshot) NextAppointmentID() int {
	next := 1
	for i := range s.Appointments {
		if s.Appointments[i].ID >= next {
			next = s.Appointments[i].ID + 1
		}
	}
	return next
}

// NextBlockedSlotID allocates the next blocked-slot id, same scheme as
// appointments.
func (s *Snapshot) NextBlockedSlotID() int {
	next := 1
	for i := range s.BlockedSlots {
		if s.BlockedSlots[i].ID >= next {
			next = s.BlockedSlots[i].ID + 1
		}
	}
	return next
}

// InsertAppointment assigns an id and appends the record.
func (s *Snapshot) InsertAppointment(a model.Appointment) model.Appointment {
	a.ID = s.NextAppointmentID()
	s.Appointments = append(s.Appointments, a)
	return a
}

// FindAppointment returns the index of the appointment with the given id,
// deleted or not, or -1.
func (s *Snapshot) FindAppointment(id int) int {
	for i := range s.Appointments {
		if s.Appointments[i].ID == id {
			return i
		}
	}
	return -1
}

// ReplaceAppointment overwrites the record with the same id. It reports
// whether a record was found.
func (s *Snapshot) ReplaceAppointment(a model.Appointment) bool {
	if i := s.FindAppointment(a.ID); i >= 0 {
		s.Appointments[i] = a
		return true
	}
	return false
}

// InsertBlockedSlot assigns an id and appends the record.
func (s *Snapshot) InsertBlockedSlot(b model.BlockedSlot) model.BlockedSlot {
	b.ID = s.NextBlockedSlotID()
	s.BlockedSlots = append(s.BlockedSlots, b)
	return b
}

// FindBlockedSlot returns the index of the slot with the given id, or -1.
func (s *Snapshot) FindBlockedSlot(id int) int {
	for i := range s.BlockedSlots {
		if s.BlockedSlots[i].ID == id {
			return i
		}
	}
	return -1
}

// ReplaceBlockedSlot overwrites the slot with the same id.
func (s *Snapshot) ReplaceBlockedSlot(b model.BlockedSlot) bool {
	if i := s.FindBlockedSlot(b.ID); i >= 0 {
		s.BlockedSlots[i] = b
		return true
	}
	return false
}

// FindUser returns the index of the user with the given id, deleted or
// not, or -1.
func (s *Snapshot) FindUser(userID string) int {
	for i := range s.Users {
		if s.Users[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Store reads and writes the snapshot file. All access goes through View
// or Update; Update holds the writer lock across the caller's function and
// the subsequent file write, so concurrent mutations are fully serialized.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by the JSON file at path. The file does not
// need to exist yet; a missing file reads as an empty snapshot.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (st *Store) Path() string { return st.path }

func (st *Store) load() (*Snapshot, error) {
	data, err := os.ReadFile(st.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", st.path, err)
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", st.path, err)
	}
	return snap, nil
}

func (st *Store) save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(st.path)
	tmp, err := os.CreateTemp(dir, ".reserve-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), st.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", tmp.Name(), err)
	}
	return nil
}

// View runs fn against a freshly loaded snapshot without persisting
// anything. Mutations made by fn are discarded.
func (st *Store) View(ctx context.Context, fn func(*Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	snap, err := st.load()
	if err != nil {
		return err
	}
	return fn(snap)
}

// Update runs fn against a freshly loaded snapshot and, if fn succeeds,
// writes the modified snapshot back atomically (temp file + rename). If fn
// returns an error nothing is written and the error is returned unchanged,
// so a validation failure can never leave the file partially updated.
func (st *Store) Update(ctx context.Context, fn func(*Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	snap, err := st.load()
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return st.save(snap)
}
