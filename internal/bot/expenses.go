package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"taxbook/internal/models"
)

var errExpenseFormat = errors.New("expense line must be merchant; total; tax; notes")

const expensePrompt = "🧾 Send the expense as one message:\n" +
	"merchant; total; tax; notes (optional)\n\n" +
	"Example: Office Depot; 42.50; 3.40; printer ink"

func (b *Bot) showExpenses(ctx context.Context, userID, chatID int64, page int) {
	token, ok := b.requireToken(ctx, userID, chatID)
	if !ok {
		return
	}

	p, err := b.expenses.Page(ctx, userID, token, page)
	if err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", userID).Int("page", page).Msg("failed to load expenses")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendWithKeyboard(chatID, renderExpenses(p, b.loc), expensesKeyboard(p))
}

func (b *Bot) showExpense(ctx context.Context, userID, chatID int64, raw string) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		b.sendMessage(chatID, "⚠️ That expense could not be found.")
		return
	}
	token, ok := b.requireToken(ctx, userID, chatID)
	if !ok {
		return
	}

	e, err := b.expenses.Get(ctx, userID, token, id)
	if err != nil {
		b.log(ctx).Warn().Err(err).Int64("expense_id", id).Msg("failed to load expense")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendWithKeyboard(chatID, renderExpense(*e, b.loc), expenseKeyboard(e.ID))
}

// startExpenseInput waits for an expense line. id 0 adds a new expense.
func (b *Bot) startExpenseInput(ctx context.Context, userID, chatID int64, id int64) {
	if _, ok := b.requireToken(ctx, userID, chatID); !ok {
		return
	}
	b.screens.update(userID, func(s *screenState) {
		s.Input = inputExpense
		s.ExpenseID = id
	})

	text := expensePrompt
	if id != 0 {
		text = "✏️ Editing expense " + strconv.FormatInt(id, 10) + ".\n\n" + expensePrompt
	}
	b.sendWithKeyboard(chatID, text, expenseInputKeyboard())
}

func (b *Bot) handleExpenseInput(ctx context.Context, userID, chatID int64, text string) {
	in, err := parseExpenseLine(text)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	token, ok := b.requireToken(ctx, userID, chatID)
	if !ok {
		b.screens.update(userID, func(s *screenState) { s.Input = inputNone })
		return
	}

	id := b.screens.get(userID).ExpenseID
	action := "create"
	var e *models.Expense
	if id == 0 {
		in.Date = b.now()
		e, err = b.expenses.Create(ctx, userID, token, in)
	} else {
		action = "update"
		e, err = b.expenses.Update(ctx, userID, token, id, in)
	}
	if err != nil {
		b.log(ctx).Warn().Err(err).Int64("user_id", userID).Str("action", action).Msg("expense not saved")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.screens.update(userID, func(s *screenState) {
		s.Input = inputNone
		s.ExpenseID = 0
	})
	if b.metrics != nil {
		b.metrics.ExpensesSaved.WithLabelValues(action).Inc()
	}
	b.sendWithKeyboard(chatID, "✅ Expense saved.\n\n"+renderExpense(*e, b.loc), expenseKeyboard(e.ID))
}

// parseExpenseLine splits "merchant; total; tax; notes". Notes may contain
// further semicolons.
func parseExpenseLine(text string) (models.ExpenseInput, error) {
	parts := strings.SplitN(text, ";", 4)
	if len(parts) < 3 {
		return models.ExpenseInput{}, errExpenseFormat
	}
	in := models.ExpenseInput{
		Merchant: strings.TrimSpace(parts[0]),
		Total:    strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "$")),
		Tax:      strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[2]), "$")),
	}
	if len(parts) == 4 {
		in.Notes = strings.TrimSpace(parts[3])
	}
	return in, nil
}
