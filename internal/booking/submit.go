package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taxbook/internal/domain"
	"taxbook/internal/events"
	"taxbook/internal/metrics"
	"taxbook/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrIncompleteDraft    = errors.New("booking draft is incomplete")
	ErrSubmissionInFlight = errors.New("booking is already being submitted")
	ErrAlreadySubmitted   = errors.New("booking was already submitted")
	ErrEmptyAppointment   = errors.New("backend returned no appointment id")
)

// submittedTTL bounds how long accepted draft ids are remembered.
const submittedTTL = time.Hour

// Submitter posts complete drafts. At most one submission per draft id runs
// at a time, and a draft id the backend accepted is never posted again.
type Submitter struct {
	api    domain.AppointmentAPI
	events domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	inFlight  map[string]struct{}
	submitted map[string]time.Time
}

func NewSubmitter(api domain.AppointmentAPI, publisher domain.EventPublisher, logger *zerolog.Logger) *Submitter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Submitter{
		api:       api,
		events:    publisher,
		logger:    logger,
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
		submitted: make(map[string]time.Time),
	}
}

// Submit creates the appointment described by d on behalf of userID. The
// draft id doubles as the request's idempotency key.
func (s *Submitter) Submit(ctx context.Context, userID int64, token string, d Draft) (*models.Appointment, error) {
	if !d.Complete() || d.ID == "" {
		metrics.IncSubmission(metrics.OutcomeRejected)
		return nil, ErrIncompleteDraft
	}

	if err := s.acquire(d.ID); err != nil {
		metrics.IncSubmission(metrics.OutcomeInFlight)
		s.logger.Warn().Err(err).Int64("user_id", userID).Str("draft_id", d.ID).Msg("duplicate submission rejected")
		return nil, err
	}

	appt, err := s.api.CreateAppointment(ctx, token, d.ID, d.Request())
	if err == nil && !appt.Booked() {
		err = ErrEmptyAppointment
	}
	s.release(d.ID, err == nil)

	if err != nil {
		metrics.IncSubmission(metrics.OutcomeError)
		s.logger.Error().Err(err).Int64("user_id", userID).Str("draft_id", d.ID).Msg("booking submission failed")
		return nil, fmt.Errorf("submit booking: %w", err)
	}

	metrics.IncSubmission(metrics.OutcomeOK)
	s.logger.Info().
		Int64("user_id", userID).
		Str("draft_id", d.ID).
		Str("appointment_id", appt.ID).
		Time("start", d.Start).
		Msg("appointment booked")

	if s.events != nil {
		payload := events.AppointmentEventPayload{
			AppointmentID: appt.ID,
			DraftID:       d.ID,
			UserID:        userID,
			ServiceID:     d.Service.ID,
			ServiceName:   d.Service.Name,
			StaffID:       d.Staff.ID,
			Start:         d.Start,
			End:           d.End,
			TimeZone:      d.TimeZone,
		}
		if err := s.events.PublishJSON(events.EventAppointmentBooked, payload); err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("failed to publish booking event")
		}
	}

	return appt, nil
}

// InFlight reports whether draftID is currently being submitted.
func (s *Submitter) InFlight(draftID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[draftID]
	return ok
}

func (s *Submitter) acquire(draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, at := range s.submitted {
		if now.Sub(at) > submittedTTL {
			delete(s.submitted, id)
		}
	}

	if _, ok := s.inFlight[draftID]; ok {
		return ErrSubmissionInFlight
	}
	if _, ok := s.submitted[draftID]; ok {
		return ErrAlreadySubmitted
	}
	s.inFlight[draftID] = struct{}{}
	return nil
}

func (s *Submitter) release(draftID string, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, draftID)
	if accepted {
		s.submitted[draftID] = s.now()
	}
}
