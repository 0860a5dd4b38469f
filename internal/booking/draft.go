package booking

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"taxbook/internal/models"

	"github.com/google/uuid"
)

var (
	ErrInvalidService  = errors.New("service is invalid")
	ErrServiceNoStaff  = errors.New("service has no assigned staff")
	ErrServiceRequired = errors.New("select a service first")
	ErrStaffNotOffered = errors.New("staff member does not offer this service")
	ErrInvalidSlot     = errors.New("slot is invalid")
	ErrInvalidTimeZone = errors.New("time zone is invalid")
	ErrCommentsTooLong = errors.New("comments are too long")
)

// Draft is a point-in-time copy of the booking selection.
type Draft struct {
	ID       string
	Service  *models.Service
	Staff    *models.Staff
	Start    time.Time
	End      time.Time
	TimeZone string
	Comments string
}

func (d Draft) HasService() bool {
	return d.Service != nil
}

func (d Draft) HasSlot() bool {
	return d.Staff != nil && !d.Start.IsZero() && !d.End.IsZero()
}

// Complete reports whether every field required for submission is set.
func (d Draft) Complete() bool {
	return d.HasService() && d.HasSlot() && d.TimeZone != ""
}

func (d Draft) Slot() models.Slot {
	return models.Slot{Start: d.Start, End: d.End}
}

// Location returns the zone captured with the slot, UTC when unset.
func (d Draft) Location() *time.Location {
	if d.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Request builds the create-appointment payload.
func (d Draft) Request() models.AppointmentRequest {
	req := models.AppointmentRequest{
		Start:    d.Start,
		End:      d.End,
		TimeZone: d.TimeZone,
		Comments: d.Comments,
	}
	if d.Service != nil {
		req.ServiceID = d.Service.ID
	}
	if d.Staff != nil {
		req.StaffID = d.Staff.ID
	}
	return req
}

// DraftStore holds the in-progress selection of one user. All mutation goes
// through its named operations.
type DraftStore struct {
	mu         sync.RWMutex
	draft      Draft
	maxComment int
}

func NewDraftStore(maxComment int) *DraftStore {
	if maxComment <= 0 {
		maxComment = models.MaxCommentLength
	}
	return &DraftStore{maxComment: maxComment}
}

// SelectService starts a fresh draft for svc. Staff, slot, zone and comments
// are reset and a new draft id is assigned.
func (s *DraftStore) SelectService(svc models.Service) error {
	if strings.TrimSpace(svc.ID) == "" {
		return ErrInvalidService
	}
	if len(svc.Staff) == 0 {
		return ErrServiceNoStaff
	}

	svc.Staff = append([]models.Staff(nil), svc.Staff...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Draft{ID: uuid.NewString(), Service: &svc}
	return nil
}

// SelectStaffAndSlot sets staff, slot and zone together or not at all.
func (s *DraftStore) SelectStaffAndSlot(staffID string, slot models.Slot, timeZone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Service == nil {
		return ErrServiceRequired
	}
	staff, ok := s.draft.Service.StaffByID(staffID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrStaffNotOffered, staffID)
	}
	if !slot.Valid() {
		return ErrInvalidSlot
	}
	if timeZone == "" {
		return ErrInvalidTimeZone
	}
	if _, err := time.LoadLocation(timeZone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimeZone, timeZone)
	}

	s.draft.Staff = &staff
	s.draft.Start = slot.Start
	s.draft.End = slot.End
	s.draft.TimeZone = timeZone
	return nil
}

// SetComments stores free text of at most maxComment characters.
func (s *DraftStore) SetComments(text string) error {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n > s.maxComment {
		return fmt.Errorf("%w: %d of %d characters", ErrCommentsTooLong, n, s.maxComment)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.Service == nil {
		return ErrServiceRequired
	}
	s.draft.Comments = text
	return nil
}

func (s *DraftStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Draft{}
}

// Snapshot returns a copy that later mutations do not affect.
func (s *DraftStore) Snapshot() Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := s.draft
	if d.Service != nil {
		svc := *d.Service
		d.Service = &svc
	}
	if d.Staff != nil {
		staff := *d.Staff
		d.Staff = &staff
	}
	return d
}

func (s *DraftStore) MaxComment() int {
	return s.maxComment
}

func (s *DraftStore) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.ID
}

func (s *DraftStore) Service() (models.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft.Service == nil {
		return models.Service{}, false
	}
	return *s.draft.Service, true
}

func (s *DraftStore) Staff() (models.Staff, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft.Staff == nil {
		return models.Staff{}, false
	}
	return *s.draft.Staff, true
}

func (s *DraftStore) Slot() (models.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft.Start.IsZero() {
		return models.Slot{}, false
	}
	return models.Slot{Start: s.draft.Start, End: s.draft.End}, true
}

func (s *DraftStore) TimeZone() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.TimeZone
}

func (s *DraftStore) Comments() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.Comments
}
