package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is the in-memory Repository used by tests. Locking is provided by
// the unit-of-work runner, which serializes writers globally.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	events   []Event
	nextSess int64
	nextEvt  int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: map[int64]Session{}, nextSess: 1, nextEvt: 1}
}

func cloneSession(s Session) Session {
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		s.EndedAt = &t
	}
	if s.DurationSec != nil {
		d := *s.DurationSec
		s.DurationSec = &d
	}
	if s.Cost != nil {
		c := *s.Cost
		s.Cost = &c
	}
	return s
}

func (r *MemoryRepo) Create(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextSess
	r.nextSess++
	r.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *MemoryRepo) GetByIDForUpdate(ctx context.Context, id int64) (Session, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryRepo) Update(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	r.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (r *MemoryRepo) ListByParticipant(ctx context.Context, userID int64) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Session
	for _, s := range r.sessions {
		if s.CallerID == userID || s.CalleeID == userID {
			out = append(out, cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) AppendEvent(ctx context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.nextEvt
	r.nextEvt++
	r.events = append(r.events, *e)
	return nil
}

func (r *MemoryRepo) ListEvents(ctx context.Context, sessionID int64) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memorySnapshot struct {
	sessions map[int64]Session
	events   []Event
	nextSess int64
	nextEvt  int64
}

func (r *MemoryRepo) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := memorySnapshot{
		sessions: make(map[int64]Session, len(r.sessions)),
		events:   make([]Event, len(r.events)),
		nextSess: r.nextSess,
		nextEvt:  r.nextEvt,
	}
	for id, s := range r.sessions {
		snap.sessions[id] = cloneSession(s)
	}
	copy(snap.events, r.events)
	return snap
}

func (r *MemoryRepo) Restore(snap any) {
	s := snap.(memorySnapshot)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[int64]Session, len(s.sessions))
	for id, sess := range s.sessions {
		r.sessions[id] = cloneSession(sess)
	}
	r.events = make([]Event, len(s.events))
	copy(r.events, s.events)
	r.nextSess = s.nextSess
	r.nextEvt = s.nextEvt
}
