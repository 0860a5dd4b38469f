package bot

import (
	"context"
	"errors"
	"fmt"

	"taxbook/internal/api"
	"taxbook/internal/booking"
	"taxbook/internal/models"
	"taxbook/internal/service"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, booking.ErrCommentsTooLong):
		return fmt.Sprintf("⚠️ Comments can be at most %d characters. Please shorten them.", b.maxComment())
	case errors.Is(err, booking.ErrServiceNoStaff):
		return "⚠️ This service has no assigned staff yet. Please choose another service."
	case errors.Is(err, booking.ErrServiceRequired), errors.Is(err, booking.ErrInvalidService):
		return "⚠️ Please choose a service first."
	case errors.Is(err, booking.ErrStaffNotOffered):
		return "⚠️ This staff member does not offer the selected service."
	case errors.Is(err, booking.ErrInvalidSlot), errors.Is(err, booking.ErrInvalidTimeZone):
		return "⚠️ That time is no longer valid. Please pick another slot."
	case errors.Is(err, booking.ErrIncompleteDraft), errors.Is(err, booking.ErrNotInReview):
		return "⚠️ Some booking details are missing. Let's complete them first."
	case errors.Is(err, booking.ErrSubmissionInFlight):
		return "⏳ Your booking is already being submitted. Please wait."
	case errors.Is(err, booking.ErrAlreadySubmitted), errors.Is(err, booking.ErrFlowConfirmed):
		return "✅ This booking was already submitted."
	case errors.Is(err, service.ErrNotSignedIn), errors.Is(err, api.ErrMissingToken):
		return "🔑 Please sign in first with /signin."
	case errors.Is(err, service.ErrCredentialsRequired):
		return "⚠️ Email and password are required."
	case errors.Is(err, errExpenseFormat):
		return "⚠️ Please send the expense as: merchant; total; tax; notes (notes are optional)."
	case errors.Is(err, service.ErrMerchantRequired):
		return "⚠️ The merchant is required."
	case errors.Is(err, service.ErrInvalidAmount):
		return "⚠️ Total and tax must be numbers like 42.50."
	case errors.Is(err, service.ErrExpensesNotSetUp):
		return "⚠️ Adding expenses is not set up yet. Please contact support."
	case errors.Is(err, service.ErrInvalidExpenseID), errors.Is(err, service.ErrExpensePageOutOfRange):
		return "⚠️ That expense could not be found."
	case errors.Is(err, service.ErrServiceNotFound):
		return "⚠️ This service is no longer available."
	case api.IsUnauthorized(err):
		return "🔑 Your session has expired. Please sign in again with /signin."
	case errors.Is(err, context.DeadlineExceeded):
		return "⌛ The server took too long to respond. Please try again."
	}

	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" && httpErr.StatusCode < 500 {
		return "❌ " + httpErr.Message
	}

	return "❌ Something went wrong. Please try again later."
}

func (b *Bot) maxComment() int {
	if b.config != nil && b.config.Booking.MaxCommentLength > 0 {
		return b.config.Booking.MaxCommentLength
	}
	return models.MaxCommentLength
}
