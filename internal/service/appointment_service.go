package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"taxbook/internal/domain"
	"taxbook/internal/events"
	"taxbook/internal/models"

	"github.com/rs/zerolog"
)

// AppointmentService lists the signed-in user's bookings.
type AppointmentService struct {
	api        domain.AppointmentAPI
	cache      domain.QueryCache
	pendingTTL time.Duration
	logger     *zerolog.Logger
}

func NewAppointmentService(
	appointmentAPI domain.AppointmentAPI,
	cache domain.QueryCache,
	pendingTTL time.Duration,
	logger *zerolog.Logger,
) *AppointmentService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if pendingTTL <= 0 {
		pendingTTL = models.PendingAppointmentsTTL
	}
	return &AppointmentService{
		api:        appointmentAPI,
		cache:      cache,
		pendingTTL: pendingTTL,
		logger:     logger,
	}
}

func pendingKey(userID int64) string {
	return fmt.Sprintf("appointments:%d:pending", userID)
}

// Pending returns upcoming appointments, cached per user.
func (s *AppointmentService) Pending(ctx context.Context, userID int64, token string) ([]models.Appointment, error) {
	key := pendingKey(userID)
	if s.cache != nil {
		var cached []models.Appointment
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("pending cache read failed")
		}
		if ok {
			return cached, nil
		}
	}

	appts, err := s.api.ListAppointments(ctx, token, models.AppointmentPending)
	if err != nil {
		return nil, err
	}
	sortByStart(appts)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, appts, s.pendingTTL); err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("pending cache write failed")
		}
	}
	return appts, nil
}

// Past returns completed appointments, newest first. Not cached.
func (s *AppointmentService) Past(ctx context.Context, userID int64, token string) ([]models.Appointment, error) {
	appts, err := s.api.ListAppointments(ctx, token, models.AppointmentPast)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to list past appointments")
		return nil, err
	}
	sortByStart(appts)
	for i, j := 0, len(appts)-1; i < j; i, j = i+1, j-1 {
		appts[i], appts[j] = appts[j], appts[i]
	}
	return appts, nil
}

func (s *AppointmentService) InvalidatePending(ctx context.Context, userID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, pendingKey(userID))
}

// Subscribe drops a user's cached pending list whenever they book or sign
// out.
func (s *AppointmentService) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventAppointmentBooked, func(ev *events.Event) error {
		var p events.AppointmentEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return s.InvalidatePending(context.Background(), p.UserID)
	})
	bus.Subscribe(events.EventSignedOut, func(ev *events.Event) error {
		var p events.UserEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return s.InvalidatePending(context.Background(), p.UserID)
	})
}

func sortByStart(appts []models.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].Start.Before(appts[j].Start)
	})
}
