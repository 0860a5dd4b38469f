package availability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"taxbook/internal/domain"
	"taxbook/internal/events"
	"taxbook/internal/metrics"
	"taxbook/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidStaff = errors.New("staff id is required")
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD")
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
)

// Result is the outcome of one availability request. A Stale result was
// superseded by a newer request for the same session and must not be shown.
type Result struct {
	Token   uint64
	StaffID string
	Date    string
	Ranges  []models.TimeRange
	Slots   []models.Slot
	Status  Status
	Stale   bool
	Err     error
}

// Fetcher loads availability and turns it into slots. Every call issues a
// new request token for its session key; only the latest token's response
// is delivered as current.
type Fetcher struct {
	api        domain.AvailabilityAPI
	slotLength time.Duration
	logger     *zerolog.Logger

	mu     sync.Mutex
	latest map[int64]uint64
}

func NewFetcher(api domain.AvailabilityAPI, slotLength time.Duration, logger *zerolog.Logger) *Fetcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if slotLength <= 0 {
		slotLength = models.DefaultSlotLength
	}
	return &Fetcher{
		api:        api,
		slotLength: slotLength,
		logger:     logger,
		latest:     make(map[int64]uint64),
	}
}

func (f *Fetcher) SlotLength() time.Duration {
	return f.slotLength
}

// Fetch asks the backend for staffID's open ranges on date. Backend failures
// yield StatusUnavailable with an empty slot list and a nil error; only bad
// input returns an error.
func (f *Fetcher) Fetch(ctx context.Context, key int64, staffID, date string) (Result, error) {
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return Result{}, ErrInvalidStaff
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return Result{}, ErrInvalidDate
	}

	token := f.issue(key)
	res := Result{Token: token, StaffID: staffID, Date: date, Slots: []models.Slot{}}

	ranges, err := f.api.GetAvailability(ctx, staffID, date)
	switch {
	case err != nil:
		res.Status = StatusUnavailable
		res.Err = err
	case len(ranges) == 0:
		res.Status = StatusEmpty
	default:
		res.Status = StatusOK
		res.Ranges = ranges
		res.Slots = GenerateSlotsWithLength(ranges, f.slotLength)
	}

	if !f.IsCurrent(key, token) {
		metrics.IncAvailability(metrics.OutcomeStale)
		f.logger.Debug().
			Int64("user_id", key).
			Uint64("token", token).
			Str("staff_id", staffID).
			Str("date", date).
			Msg("discarding stale availability response")
		return Result{Token: token, StaffID: staffID, Date: date, Slots: []models.Slot{}, Stale: true}, nil
	}

	switch res.Status {
	case StatusUnavailable:
		metrics.IncAvailability(metrics.OutcomeUnavailable)
		f.logger.Warn().Err(err).Str("staff_id", staffID).Str("date", date).Msg("availability unavailable")
	case StatusEmpty:
		metrics.IncAvailability(metrics.OutcomeEmpty)
	default:
		metrics.IncAvailability(metrics.OutcomeOK)
	}
	return res, nil
}

// IsCurrent reports whether token is the latest issued for key.
func (f *Fetcher) IsCurrent(key int64, token uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[key] == token
}

// Forget invalidates every request still pending for key.
func (f *Fetcher) Forget(key int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest[key]++
}

// Subscribe forgets a user's pending requests when their draft is dropped.
func (f *Fetcher) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventDraftCleared, func(ev *events.Event) error {
		var p events.DraftEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		f.Forget(p.UserID)
		return nil
	})
}

func (f *Fetcher) issue(key int64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest[key]++
	return f.latest[key]
}
