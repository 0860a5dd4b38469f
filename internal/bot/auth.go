package bot

import (
	"context"
	"strings"

	"taxbook/internal/models"
)

func (b *Bot) startSignIn(userID, chatID int64) {
	b.screens.update(userID, func(s *screenState) {
		s.Input = inputEmail
		s.Email = ""
	})
	b.sendMessage(chatID, "🔑 Please send your email address.")
}

func (b *Bot) handleEmailInput(userID, chatID int64, email string) {
	if !strings.Contains(email, "@") {
		b.sendMessage(chatID, "⚠️ That does not look like an email address. Please try again.")
		return
	}
	b.screens.update(userID, func(s *screenState) {
		s.Email = email
		s.Input = inputPassword
	})
	b.sendMessage(chatID, "Now send your password.")
}

func (b *Bot) handlePasswordInput(ctx context.Context, userID, chatID int64, password string) {
	email := b.screens.get(userID).Email
	b.screens.update(userID, func(s *screenState) {
		s.Input = inputNone
		s.Email = ""
	})

	user, err := b.auth.SignIn(ctx, userID, email, password)
	if err != nil {
		b.sendWithKeyboard(chatID, "❌ Sign in failed: "+b.getErrorMessage(err), mainMenuKeyboard(models.AuthUnauthenticated))
		return
	}

	text := "✅ Signed in"
	if user.Email != "" {
		text += " as " + user.Email
	}
	text += "."

	flow, ok := b.sessions.Peek(userID)
	if ok && flow.CanEnterReview() {
		b.sendMessage(chatID, text+" Your booking is still here.")
		b.renderState(ctx, userID, chatID, flow.Goto(flow.State()))
		return
	}
	b.sendWithKeyboard(chatID, text, mainMenuKeyboard(models.AuthAuthenticated))
}

func (b *Bot) handleLogout(ctx context.Context, userID, chatID int64) {
	b.cancelFlow(userID)
	if err := b.auth.Logout(ctx, userID); err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("logout failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendWithKeyboard(chatID, "👋 You are signed out.", mainMenuKeyboard(models.AuthUnauthenticated))
}
