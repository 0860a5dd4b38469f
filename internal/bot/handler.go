package bot

import (
	"context"
	"strings"

	"taxbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Available commands:
/book - book an appointment
/mybookings - upcoming appointments
/past - past appointments
/export - download your appointments as Excel
/expenses - your receipts and expenses
/signin - sign in to your account
/logout - sign out
/cancel - cancel the current booking`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.metrics.command(msg.Command())
		b.handleCommand(ctx, userID, chatID, msg.Command())
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch b.screens.get(userID).Input {
	case inputComments:
		b.handleCommentsInput(ctx, userID, chatID, msg.Text)
	case inputEmail:
		b.handleEmailInput(userID, chatID, text)
	case inputPassword:
		b.handlePasswordInput(ctx, userID, chatID, msg.Text)
	case inputExpense:
		b.handleExpenseInput(ctx, userID, chatID, msg.Text)
	default:
		b.sendWithKeyboard(chatID, "Please choose an action from the menu.", mainMenuKeyboard(b.auth.Status(userID)))
	}
}

func (b *Bot) handleCommand(ctx context.Context, userID, chatID int64, command string) {
	switch command {
	case "start":
		b.handleStart(ctx, userID, chatID)
	case "help":
		b.sendMessage(chatID, helpText)
	case "book", "services":
		b.leaveOtherSection(userID)
		b.showServices(ctx, userID, chatID)
	case "mybookings":
		b.leaveFlow(userID)
		b.showPending(ctx, userID, chatID)
	case "past":
		b.leaveFlow(userID)
		b.showPast(ctx, userID, chatID)
	case "export":
		b.leaveFlow(userID)
		b.handleExport(ctx, userID, chatID)
	case "expenses":
		b.leaveFlow(userID)
		b.showExpenses(ctx, userID, chatID, 0)
	case "signin":
		b.startSignIn(userID, chatID)
	case "logout":
		b.handleLogout(ctx, userID, chatID)
	case "cancel":
		b.cancelFlow(userID)
		b.sendWithKeyboard(chatID, "Booking cancelled.", mainMenuKeyboard(b.auth.Status(userID)))
	default:
		b.sendMessage(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) handleStart(ctx context.Context, userID, chatID int64) {
	b.screens.reset(userID)

	status, err := b.auth.CheckStatus(ctx, userID)
	if err != nil {
		b.log(ctx).Warn().Err(err).Int64("user_id", userID).Msg("auth status check failed")
	}

	text := "👋 Welcome! I can book tax consultations and other services for you."
	if status != models.AuthAuthenticated {
		text += "\n\nSign in to book and see your appointments."
	}
	b.sendWithKeyboard(chatID, text, mainMenuKeyboard(status))
}

// leaveFlow abandons an unfinished booking when the user moves to an
// unrelated section.
func (b *Bot) leaveFlow(userID int64) {
	if _, ok := b.sessions.Peek(userID); ok {
		b.cancelFlow(userID)
		return
	}
	b.screens.reset(userID)
}

// leaveOtherSection drops pending text input without touching the draft.
func (b *Bot) leaveOtherSection(userID int64) {
	b.screens.update(userID, func(st *screenState) {
		st.Input = inputNone
		st.Email = ""
		st.ExpenseID = 0
	})
}

func (b *Bot) cancelFlow(userID int64) {
	b.sessions.Reset(userID)
	b.screens.reset(userID)
	b.fetcher.Forget(userID)
}
