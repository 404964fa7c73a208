// Package memstore is an in-memory implementation of the schedule, booking
// and membership repositories. It applies the tenant scope the same way the
// Postgres adapters do and serializes transactions behind one mutex, which
// plays the role of the schedule row lock.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"fitclass/internal/booking"
	"fitclass/internal/gym"
	"fitclass/internal/membership"
	"fitclass/internal/schedule"
)

var (
	_ schedule.Repository   = (*Schedules)(nil)
	_ booking.Repository    = (*Bookings)(nil)
	_ membership.Repository = (*Memberships)(nil)
)

type state struct {
	classes     map[string]schedule.ClassDefinition
	instances   map[string]schedule.Instance
	bookings    map[string]booking.Booking
	memberships map[string]membership.Membership
}

func newState() *state {
	return &state{
		classes:     map[string]schedule.ClassDefinition{},
		instances:   map[string]schedule.Instance{},
		bookings:    map[string]booking.Booking{},
		memberships: map[string]membership.Membership{},
	}
}

// clone copies the maps. Stored values are never mutated in place, so
// sharing their pointer fields is safe.
func (s *state) clone() *state {
	return &state{
		classes:     maps.Clone(s.classes),
		instances:   maps.Clone(s.instances),
		bookings:    maps.Clone(s.bookings),
		memberships: maps.Clone(s.memberships),
	}
}

type Store struct {
	mu   sync.Mutex
	st   *state
	gyms []gym.Gym
	now  func() time.Time

	// bookingFailures is how many upcoming booking transactions fail with
	// booking.ErrTransient before running.
	bookingFailures int
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddGym registers a gym under an organisation.
func (s *Store) AddGym(organisationID, gymID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gyms = append(s.gyms, gym.Gym{ID: gymID, OrganisationID: organisationID, Name: gymID, CreatedAt: s.now()})
}

func (s *Store) OrganisationOf(_ context.Context, gymID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.gyms {
		if g.ID == gymID {
			return g.OrganisationID, nil
		}
	}
	return "", fmt.Errorf("gym %s: %w", gymID, gym.ErrGymNotFound)
}

// ListGyms returns every gym of every organisation.
func (s *Store) ListGyms(context.Context) ([]gym.Gym, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gym.Gym, len(s.gyms))
	copy(out, s.gyms)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FailBookingTx makes the next n booking transactions fail as transient.
func (s *Store) FailBookingTx(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookingFailures = n
}

func (s *Store) Schedules() *Schedules {
	return &Schedules{s: s}
}

func (s *Store) Bookings() *Bookings {
	return &Bookings{s: s}
}

func (s *Store) Memberships() *Memberships {
	return &Memberships{s: s}
}

// read runs fn against the committed state.
func (s *Store) read(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// transact runs fn against a private copy of the state and publishes the
// copy only if fn succeeds.
func (s *Store) transact(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.st = work
	return nil
}
