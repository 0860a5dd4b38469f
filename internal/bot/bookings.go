package bot

import (
	"context"
	"os"

	"taxbook/internal/models"
)

func (b *Bot) showPending(ctx context.Context, userID, chatID int64) {
	token, ok := b.requireToken(ctx, userID, chatID)
	if !ok {
		return
	}

	appts, err := b.appointments.Pending(ctx, userID, token)
	if err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to load pending appointments")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendWithKeyboard(chatID, renderAppointments("🗂 Upcoming appointments", appts, b.loc), mainMenuKeyboard(b.auth.Status(userID)))
}

func (b *Bot) showPast(ctx context.Context, userID, chatID int64) {
	token, ok := b.requireToken(ctx, userID, chatID)
	if !ok {
		return
	}

	appts, err := b.appointments.Past(ctx, userID, token)
	if err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to load past appointments")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendWithKeyboard(chatID, renderAppointments("🕘 Past appointments", appts, b.loc), mainMenuKeyboard(b.auth.Status(userID)))
}

func (b *Bot) handleExport(ctx context.Context, userID, chatID int64) {
	token, ok := b.requireToken(ctx, userID, chatID)
	if !ok {
		return
	}

	pending, err := b.appointments.Pending(ctx, userID, token)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	past, err := b.appointments.Past(ctx, userID, token)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	path, err := exportAppointments(b.config.Bot.ExportPath, userID, pending, past, b.loc, b.now())
	if err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to export appointments")
		b.sendMessage(chatID, "❌ Could not build the export file.")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			b.log(ctx).Warn().Err(err).Str("path", path).Msg("failed to remove export file")
		}
	}()

	if _, err := b.tgService.SendDocument(chatID, path); err != nil {
		b.log(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("failed to send export")
		b.sendMessage(chatID, "❌ Could not send the export file.")
	}
}

// requireToken fetches the stored token or tells the user to sign in.
func (b *Bot) requireToken(ctx context.Context, userID, chatID int64) (string, bool) {
	token, err := b.auth.Token(ctx, userID)
	if err != nil {
		b.log(ctx).Debug().Err(err).Int64("user_id", userID).Msg("no token")
		b.sendWithKeyboard(chatID, b.getErrorMessage(err), mainMenuKeyboard(models.AuthUnauthenticated))
		return "", false
	}
	return token, true
}
