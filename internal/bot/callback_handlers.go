package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"taxbook/internal/booking"
	"taxbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if err := b.tgService.AnswerCallback(cb.ID, ""); err != nil {
		b.log(ctx).Warn().Err(err).Msg("failed to answer callback")
	}
	if cb.Message == nil {
		return
	}

	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	data := cb.Data

	b.metrics.command(callbackName(data))
	b.log(ctx).Debug().Int64("user_id", userID).Str("data", data).Msg("callback")

	switch {
	case data == cbNoop:
	case data == cbMenuBook:
		b.leaveOtherSection(userID)
		b.showServices(ctx, userID, chatID)
	case data == cbMenuPending:
		b.leaveFlow(userID)
		b.showPending(ctx, userID, chatID)
	case data == cbMenuPast:
		b.leaveFlow(userID)
		b.showPast(ctx, userID, chatID)
	case data == cbMenuExpense:
		b.leaveFlow(userID)
		b.showExpenses(ctx, userID, chatID, 0)
	case data == cbExpenseAdd:
		b.startExpenseInput(ctx, userID, chatID, 0)
	case data == cbMenuSignIn:
		b.startSignIn(userID, chatID)
	case data == cbMenuLogout:
		b.handleLogout(ctx, userID, chatID)
	case data == cbCancel:
		b.cancelFlow(userID)
		b.sendWithKeyboard(chatID, "Booking cancelled.", mainMenuKeyboard(b.auth.Status(userID)))
	case data == cbBack:
		b.handleBack(ctx, userID, chatID)
	case data == cbSkipDetails:
		b.renderState(ctx, userID, chatID, b.sessions.Get(userID).ContinueToReview())
	case data == cbConfirm:
		b.handleConfirm(ctx, userID, chatID)
	case strings.HasPrefix(data, prefixService):
		b.handleServiceSelected(ctx, userID, chatID, strings.TrimPrefix(data, prefixService))
	case strings.HasPrefix(data, prefixStaff):
		b.handleStaffSelected(ctx, userID, chatID, strings.TrimPrefix(data, prefixStaff))
	case strings.HasPrefix(data, prefixMonth):
		b.handleMonth(ctx, userID, chatID, strings.TrimPrefix(data, prefixMonth))
	case strings.HasPrefix(data, prefixDate):
		b.handleDateSelected(ctx, userID, chatID, strings.TrimPrefix(data, prefixDate))
	case strings.HasPrefix(data, prefixSlot):
		b.handleSlotSelected(ctx, userID, chatID, strings.TrimPrefix(data, prefixSlot))
	case strings.HasPrefix(data, prefixExpensePage):
		b.handleExpensePage(ctx, userID, chatID, strings.TrimPrefix(data, prefixExpensePage))
	case strings.HasPrefix(data, prefixExpenseEdit):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, prefixExpenseEdit), 10, 64)
		if err != nil {
			b.sendMessage(chatID, "⚠️ That expense could not be found.")
			return
		}
		b.startExpenseInput(ctx, userID, chatID, id)
	case strings.HasPrefix(data, prefixExpense):
		b.showExpense(ctx, userID, chatID, strings.TrimPrefix(data, prefixExpense))
	default:
		b.log(ctx).Warn().Str("data", data).Msg("unknown callback")
	}
}

// callbackName strips the argument so metric labels stay bounded.
func callbackName(data string) string {
	if i := strings.Index(data, ":"); i >= 0 && !strings.HasPrefix(data, "menu:") && data != cbSkipDetails {
		return data[:i]
	}
	return data
}

func (b *Bot) handleExpensePage(ctx context.Context, userID, chatID int64, raw string) {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		page = 0
	}
	b.screens.update(userID, func(s *screenState) {
		s.Input = inputNone
		s.ExpenseID = 0
	})
	b.showExpenses(ctx, userID, chatID, page)
}

func (b *Bot) handleServiceSelected(ctx context.Context, userID, chatID int64, serviceID string) {
	svc, err := b.catalog.GetService(ctx, serviceID)
	if err != nil {
		b.log(ctx).Warn().Err(err).Str("service_id", serviceID).Msg("service lookup failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	flow := b.sessions.Get(userID)
	if err := flow.SelectService(*svc); err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.screens.update(userID, func(s *screenState) {
		s.StaffID = ""
		s.Date = ""
		s.Slots = nil
		s.Input = inputNone
	})
	b.fetcher.Forget(userID)
	b.showStaff(userID, chatID)
}

func (b *Bot) handleStaffSelected(ctx context.Context, userID, chatID int64, staffID string) {
	flow := b.sessions.Get(userID)
	if state := flow.Goto(booking.StateSelectStaffAndTime); state != booking.StateSelectStaffAndTime {
		b.renderState(ctx, userID, chatID, state)
		return
	}
	svc, _ := flow.Draft().Service()
	if _, ok := svc.StaffByID(staffID); !ok {
		b.sendMessage(chatID, b.getErrorMessage(booking.ErrStaffNotOffered))
		b.showStaff(userID, chatID)
		return
	}

	b.screens.update(userID, func(s *screenState) {
		s.StaffID = staffID
		s.Date = ""
		s.Slots = nil
	})
	from, _ := b.bookingWindow()
	b.showCalendar(chatID, from.Year(), from.Month())
}

func (b *Bot) handleMonth(ctx context.Context, userID, chatID int64, month string) {
	if state := b.sessions.Get(userID).Goto(booking.StateSelectStaffAndTime); state != booking.StateSelectStaffAndTime {
		b.renderState(ctx, userID, chatID, state)
		return
	}
	t, err := time.ParseInLocation("2006-01", month, b.loc)
	if err != nil {
		from, _ := b.bookingWindow()
		t = from
	}
	b.screens.update(userID, func(s *screenState) { s.Input = inputNone })
	b.showCalendar(chatID, t.Year(), t.Month())
}

func (b *Bot) handleDateSelected(ctx context.Context, userID, chatID int64, date string) {
	if state := b.sessions.Get(userID).Goto(booking.StateSelectStaffAndTime); state != booking.StateSelectStaffAndTime {
		b.renderState(ctx, userID, chatID, state)
		return
	}
	if _, err := time.ParseInLocation(models.DateLayout, date, b.loc); err != nil {
		b.sendMessage(chatID, "⚠️ Please choose a valid date.")
		return
	}
	b.showSlots(ctx, userID, chatID, date)
}

func (b *Bot) handleSlotSelected(ctx context.Context, userID, chatID int64, raw string) {
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(booking.ErrInvalidSlot))
		return
	}

	st := b.screens.get(userID)
	var slot models.Slot
	found := false
	for _, s := range st.Slots {
		if s.Start.Unix() == unix {
			slot, found = s, true
			break
		}
	}
	if !found {
		b.sendMessage(chatID, b.getErrorMessage(booking.ErrInvalidSlot))
		return
	}

	flow := b.sessions.Get(userID)
	if err := flow.SelectStaffAndSlot(st.StaffID, slot, b.config.Booking.TimeZone); err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		b.renderState(ctx, userID, chatID, flow.State())
		return
	}
	b.showDetails(userID, chatID)
}

// handleBack steps back one screen. Within staff and time the calendar
// returns to the staff list before leaving the step.
func (b *Bot) handleBack(ctx context.Context, userID, chatID int64) {
	flow := b.sessions.Get(userID)
	if flow.State() == booking.StateSelectStaffAndTime && b.screens.get(userID).StaffID != "" {
		b.screens.update(userID, func(s *screenState) {
			s.StaffID = ""
			s.Date = ""
			s.Slots = nil
		})
		b.fetcher.Forget(userID)
		b.showStaff(userID, chatID)
		return
	}

	state := flow.Back()
	if state == booking.StateSelectStaffAndTime {
		b.screens.update(userID, func(s *screenState) { s.Input = inputNone })
		if st := b.screens.get(userID); st.StaffID != "" {
			from, _ := b.bookingWindow()
			b.showCalendar(chatID, from.Year(), from.Month())
			return
		}
	}
	b.renderState(ctx, userID, chatID, state)
}
