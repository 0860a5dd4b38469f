package booking

import (
	"context"
	"errors"
	"sync"

	"taxbook/internal/models"
)

// State is a step of the booking wizard.
type State string

const (
	StateSelectService      State = "select_service"
	StateSelectStaffAndTime State = "select_staff_time"
	StateAddDetails         State = "add_details"
	StateReview             State = "review"
	StateConfirmed          State = "confirmed"
)

var (
	ErrNotInReview   = errors.New("booking is not ready for confirmation")
	ErrFlowConfirmed = errors.New("booking flow already finished")
)

// AppointmentSubmitter is what the flow needs from Submitter.
type AppointmentSubmitter interface {
	Submit(ctx context.Context, userID int64, token string, d Draft) (*models.Appointment, error)
}

// Flow is the booking wizard of one user. Forward moves go through guards
// that redirect to the earliest step whose data is missing; Back never
// touches the draft.
type Flow struct {
	mu        sync.Mutex
	userID    int64
	state     State
	draft     *DraftStore
	submitter AppointmentSubmitter
	confirmed *models.Appointment
}

func NewFlow(userID int64, draft *DraftStore, submitter AppointmentSubmitter) *Flow {
	if draft == nil {
		draft = NewDraftStore(models.MaxCommentLength)
	}
	return &Flow{
		userID:    userID,
		state:     StateSelectService,
		draft:     draft,
		submitter: submitter,
	}
}

func (f *Flow) UserID() int64 {
	return f.userID
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Draft() *DraftStore {
	return f.draft
}

// Confirmed returns the appointment created by the last successful Confirm.
func (f *Flow) Confirmed() *models.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed
}

// Resolve returns the state actually entered when target is requested for
// the current draft.
func (f *Flow) Resolve(target State) State {
	return resolve(target, f.draft.Snapshot())
}

func resolve(target State, d Draft) State {
	switch target {
	case StateSelectStaffAndTime, StateAddDetails:
		if !d.HasService() {
			return StateSelectService
		}
	case StateReview:
		if !d.HasService() {
			return StateSelectService
		}
		if !d.HasSlot() {
			return StateSelectStaffAndTime
		}
	}
	return target
}

// CanEnterReview reports whether the review step may render.
func (f *Flow) CanEnterReview() bool {
	return f.Resolve(StateReview) == StateReview
}

// Goto moves to target or to the earliest incomplete step before it.
func (f *Flow) Goto(target State) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if target == StateConfirmed {
		target = StateReview
	}
	f.state = resolve(target, f.draft.Snapshot())
	return f.state
}

// SelectService starts a new draft for svc and advances to staff and time.
func (f *Flow) SelectService(svc models.Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.draft.SelectService(svc); err != nil {
		return err
	}
	f.confirmed = nil
	f.state = StateSelectStaffAndTime
	return nil
}

// SelectStaffAndSlot records staff and slot together and advances to
// details. Without a service the flow is sent back to service selection.
func (f *Flow) SelectStaffAndSlot(staffID string, slot models.Slot, timeZone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.draft.SelectStaffAndSlot(staffID, slot, timeZone); err != nil {
		f.state = resolve(StateSelectStaffAndTime, f.draft.Snapshot())
		return err
	}
	f.state = StateAddDetails
	return nil
}

func (f *Flow) SetComments(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.draft.SetComments(text); err != nil {
		if errors.Is(err, ErrServiceRequired) {
			f.state = StateSelectService
		}
		return err
	}
	return nil
}

// ContinueToReview is the "Continue" action of the details step.
func (f *Flow) ContinueToReview() State {
	return f.Goto(StateReview)
}

// Back steps one screen back. Draft fields are kept.
func (f *Flow) Back() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateReview:
		f.state = StateAddDetails
	case StateAddDetails:
		f.state = StateSelectStaffAndTime
	case StateSelectStaffAndTime:
		f.state = StateSelectService
	}
	return f.state
}

// Confirm submits the draft. On success the draft is cleared and the flow
// is Confirmed; on failure it stays in Review with the draft intact.
func (f *Flow) Confirm(ctx context.Context, token string) (*models.Appointment, error) {
	f.mu.Lock()
	if f.state == StateConfirmed {
		f.mu.Unlock()
		return nil, ErrFlowConfirmed
	}
	d := f.draft.Snapshot()
	if next := resolve(StateReview, d); next != StateReview {
		f.state = next
		f.mu.Unlock()
		return nil, ErrIncompleteDraft
	}
	if f.state != StateReview {
		f.mu.Unlock()
		return nil, ErrNotInReview
	}
	f.mu.Unlock()

	appt, err := f.submitter.Submit(ctx, f.userID, token, d)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if f.draft.ID() == d.ID {
		f.draft.Clear()
	}
	f.confirmed = appt
	f.state = StateConfirmed
	return appt, nil
}

// Abandon drops the draft, as when the user leaves for an unrelated section.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Clear()
	f.state = StateSelectService
}
