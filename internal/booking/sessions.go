package booking

import (
	"sync"

	"taxbook/internal/domain"
	"taxbook/internal/events"
)

// Sessions keeps one Flow per chat user for the life of the process.
type Sessions struct {
	mu         sync.Mutex
	flows      map[int64]*Flow
	submitter  AppointmentSubmitter
	maxComment int
	events     domain.EventPublisher
}

func NewSessions(submitter AppointmentSubmitter, maxComment int) *Sessions {
	return &Sessions{
		flows:      make(map[int64]*Flow),
		submitter:  submitter,
		maxComment: maxComment,
	}
}

// UsePublisher announces abandoned drafts as EventDraftCleared.
func (s *Sessions) UsePublisher(publisher domain.EventPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = publisher
}

// Get returns the user's flow, creating an empty one on first use.
func (s *Sessions) Get(userID int64) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flows[userID]
	if f == nil {
		f = NewFlow(userID, NewDraftStore(s.maxComment), s.submitter)
		s.flows[userID] = f
	}
	return f
}

func (s *Sessions) Peek(userID int64) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[userID]
	return f, ok
}

// Reset abandons and forgets the user's flow. A flow that still held a
// draft is published as EventDraftCleared.
func (s *Sessions) Reset(userID int64) {
	s.mu.Lock()
	f := s.flows[userID]
	delete(s.flows, userID)
	publisher := s.events
	s.mu.Unlock()

	if f == nil {
		return
	}
	draftID := f.Draft().ID()
	f.Abandon()
	if draftID == "" || publisher == nil {
		return
	}
	_ = publisher.PublishJSON(events.EventDraftCleared, events.DraftEventPayload{
		UserID:  userID,
		DraftID: draftID,
	})
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}
