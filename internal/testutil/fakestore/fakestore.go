// Package fakestore provides an in-memory RecordStore for unit tests.
package fakestore

import (
	"context"
	"sync"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// Store is an in-memory store.RecordStore. Records are keyed by id
// (memberships by userID+"/"+organizationID). Any method can be forced to
// fail by setting Err, which simulates an infrastructure outage.
//
// Store is safe for concurrent use. The zero value is not usable; call
// New.
type Store struct {
	mu          sync.Mutex
	cases       map[string]store.Case
	parties     map[string]store.Party
	documents   map[string]store.Document
	memberships map[string]store.Membership

	// Err, when non-nil, is returned verbatim by every read.
	Err error

	reads int
}

// New creates an empty fake store.
func New() *Store {
	return &Store{
		cases:       make(map[string]store.Case),
		parties:     make(map[string]store.Party),
		documents:   make(map[string]store.Document),
		memberships: make(map[string]store.Membership),
	}
}

var _ store.RecordStore = (*Store)(nil)

// AddCase registers a case record.
func (s *Store) AddCase(c store.Case) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = c
	return s
}

// AddParty registers a party record.
func (s *Store) AddParty(p store.Party) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[p.ID] = p
	return s
}

// AddDocument registers a document record.
func (s *Store) AddDocument(d store.Document) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[d.ID] = d
	return s
}

// AddMembership registers a membership record.
func (s *Store) AddMembership(m store.Membership) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.UserID+"/"+m.OrganizationID] = m
	return s
}

// Reads reports the number of read operations served so far, including
// not-found results but excluding injected failures.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Store) GetCase(ctx context.Context, id string) (*store.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.reads++
	c, ok := s.cases[id]
	if !ok {
		return nil, store.NotFound("case", id)
	}
	return &c, nil
}

func (s *Store) GetParty(ctx context.Context, id string) (*store.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.reads++
	p, ok := s.parties[id]
	if !ok {
		return nil, store.NotFound("party", id)
	}
	return &p, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.reads++
	d, ok := s.documents[id]
	if !ok {
		return nil, store.NotFound("document", id)
	}
	return &d, nil
}

func (s *Store) FindMembership(ctx context.Context, userID, organizationID string) (*store.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.reads++
	m, ok := s.memberships[userID+"/"+organizationID]
	if !ok {
		return nil, rxerr.NotFoundf("membership for user %q in organization %q not found",
			userID, organizationID)
	}
	return &m, nil
}

// Ping reports the injected failure, if any.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}
