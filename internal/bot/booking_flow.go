package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxbook/internal/availability"
	"taxbook/internal/booking"
	"taxbook/internal/models"
)

func (b *Bot) showServices(ctx context.Context, userID, chatID int64) {
	services, err := b.catalog.ListServices(ctx)
	if err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to list services")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(services) == 0 {
		b.sendMessage(chatID, "No services are available right now. Please try again later.")
		return
	}

	b.sessions.Get(userID).Goto(booking.StateSelectService)
	b.sendWithKeyboard(chatID, "💼 Choose a service:", servicesKeyboard(services))
}

func (b *Bot) showStaff(userID, chatID int64) {
	flow := b.sessions.Get(userID)
	svc, ok := flow.Draft().Service()
	if !ok {
		b.renderState(context.Background(), userID, chatID, flow.Goto(booking.StateSelectService))
		return
	}
	b.sendWithKeyboard(chatID, fmt.Sprintf("👤 Who would you like to see for %s?", svc.Name), staffKeyboard(svc.Staff))
}

// bookingWindow is the range of dates offered in the calendar.
func (b *Bot) bookingWindow() (time.Time, time.Time) {
	days := b.config.Booking.MaxAdvanceDays
	if days <= 0 {
		days = models.MaxAdvanceDays
	}
	from := truncateDay(b.now().In(b.loc))
	return from, from.AddDate(0, 0, days)
}

func (b *Bot) showCalendar(chatID int64, year int, month time.Month) {
	from, to := b.bookingWindow()
	first := time.Date(year, month, 1, 0, 0, 0, 0, b.loc)
	if first.After(to) || !first.AddDate(0, 1, 0).After(from) {
		year, month = from.Year(), from.Month()
	}
	b.sendWithKeyboard(chatID, "📅 Choose a date:", calendarKeyboard(year, month, from, to))
}

// showSlots loads availability for the date kept on screen. A response
// superseded by a newer request is dropped silently.
func (b *Bot) showSlots(ctx context.Context, userID, chatID int64, date string) {
	st := b.screens.get(userID)
	if st.StaffID == "" {
		b.showStaff(userID, chatID)
		return
	}

	res, err := b.fetcher.Fetch(ctx, userID, st.StaffID, date)
	if err != nil {
		b.log(ctx).Warn().Err(err).Str("date", date).Msg("invalid availability request")
		b.sendMessage(chatID, "⚠️ Please choose a valid date.")
		return
	}
	if res.Stale {
		b.log(ctx).Debug().Uint64("token", res.Token).Msg("dropping stale availability")
		return
	}

	slots := availability.Bookable(res.Slots, b.now(), b.config.Booking.MinAdvance())
	b.screens.update(userID, func(s *screenState) {
		s.Date = date
		s.Slots = slots
	})

	month := date[:7]
	if res.Status == availability.StatusUnavailable {
		b.sendWithKeyboard(chatID,
			"⚠️ Could not load availability right now. Please try again or pick another date.",
			slotsKeyboard(nil, b.loc, month))
		return
	}
	if len(slots) == 0 {
		b.sendWithKeyboard(chatID, "No open times on this date. Please pick another date.", slotsKeyboard(nil, b.loc, month))
		return
	}
	b.sendWithKeyboard(chatID, fmt.Sprintf("🕒 Available times on %s:", date), slotsKeyboard(slots, b.loc, month))
}

func (b *Bot) showDetails(userID, chatID int64) {
	b.screens.update(userID, func(s *screenState) { s.Input = inputComments })

	text := fmt.Sprintf(
		"✏️ Anything we should know before the appointment? Send it as a message (up to %d characters) or press Continue.",
		b.maxComment(),
	)
	if c := b.sessions.Get(userID).Draft().Comments(); c != "" {
		text += "\n\nCurrent comments: " + c
	}
	b.sendWithKeyboard(chatID, text, detailsKeyboard())
}

func (b *Bot) showReview(userID, chatID int64) {
	b.screens.update(userID, func(s *screenState) { s.Input = inputNone })
	b.sendWithKeyboard(chatID, renderReview(b.sessions.Get(userID).Draft().Snapshot()), reviewKeyboard())
}

// renderState shows the screen for state. Used after guards and Back.
func (b *Bot) renderState(ctx context.Context, userID, chatID int64, state booking.State) {
	switch state {
	case booking.StateSelectService:
		b.showServices(ctx, userID, chatID)
	case booking.StateSelectStaffAndTime:
		b.screens.update(userID, func(s *screenState) { s.Input = inputNone })
		b.showStaff(userID, chatID)
	case booking.StateAddDetails:
		b.showDetails(userID, chatID)
	case booking.StateReview:
		b.showReview(userID, chatID)
	case booking.StateConfirmed:
		b.sendWithKeyboard(chatID, "✅ Your appointment is booked.", mainMenuKeyboard(b.auth.Status(userID)))
	}
}

func (b *Bot) handleCommentsInput(ctx context.Context, userID, chatID int64, text string) {
	flow := b.sessions.Get(userID)
	if err := flow.SetComments(text); err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		if flow.State() == booking.StateSelectService {
			b.renderState(ctx, userID, chatID, booking.StateSelectService)
		}
		return
	}
	b.renderState(ctx, userID, chatID, flow.ContinueToReview())
}

func (b *Bot) handleConfirm(ctx context.Context, userID, chatID int64) {
	flow := b.sessions.Get(userID)
	if !flow.CanEnterReview() {
		b.sendMessage(chatID, b.getErrorMessage(booking.ErrIncompleteDraft))
		b.renderState(ctx, userID, chatID, flow.Goto(booking.StateReview))
		return
	}

	token, err := b.auth.Token(ctx, userID)
	if err != nil {
		b.log(ctx).Info().Err(err).Int64("user_id", userID).Msg("confirm without token")
		b.sendWithKeyboard(chatID, b.getErrorMessage(err)+" Your booking is kept.", mainMenuKeyboard(models.AuthUnauthenticated))
		return
	}

	serviceName := ""
	if svc, ok := flow.Draft().Service(); ok {
		serviceName = svc.Name
	}

	appt, err := flow.Confirm(ctx, token)
	if errors.Is(err, booking.ErrNotInReview) {
		b.renderState(ctx, userID, chatID, flow.ContinueToReview())
		return
	}
	if err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("booking failed")
		b.sendWithKeyboard(chatID, b.getErrorMessage(err), reviewKeyboard())
		return
	}

	if b.metrics != nil {
		b.metrics.BookingsCreated.WithLabelValues(serviceName).Inc()
	}
	b.screens.reset(userID)
	b.fetcher.Forget(userID)

	b.sendMessage(chatID, "✅ Your appointment is booked!\n\n"+renderAppointment(*appt, b.loc))
	b.showPending(ctx, userID, chatID)
}
