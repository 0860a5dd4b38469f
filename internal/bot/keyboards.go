package bot

import (
	"fmt"
	"strconv"
	"time"

	"taxbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbNoop        = "noop"
	cbBack        = "back"
	cbCancel      = "cancel"
	cbConfirm     = "confirm"
	cbSkipDetails = "details:skip"
	cbMenuBook    = "menu:book"
	cbMenuPending = "menu:bookings"
	cbMenuPast    = "menu:past"
	cbMenuSignIn  = "menu:signin"
	cbMenuLogout  = "menu:logout"
	cbMenuExpense = "menu:expenses"
	cbExpenseAdd  = "expense:add"

	prefixService = "svc:"
	prefixStaff   = "staff:"
	prefixDate    = "date:"
	prefixMonth   = "cal:"
	prefixSlot    = "slot:"

	prefixExpensePage = "expp:"
	prefixExpense     = "exp:"
	prefixExpenseEdit = "expedit:"
)

func mainMenuKeyboard(status models.AuthStatus) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("📅 Book an appointment", cbMenuBook)},
		{
			tgbotapi.NewInlineKeyboardButtonData("🗂 My bookings", cbMenuPending),
			tgbotapi.NewInlineKeyboardButtonData("🕘 Past", cbMenuPast),
		},
		{tgbotapi.NewInlineKeyboardButtonData("🧾 Expenses", cbMenuExpense)},
	}
	if status == models.AuthAuthenticated {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("🚪 Log out", cbMenuLogout)})
	} else {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("🔑 Sign in", cbMenuSignIn)})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func servicesKeyboard(services []models.Service) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(services)+1)
	for _, svc := range services {
		label := svc.Name
		if svc.DurationMinutes > 0 {
			label = fmt.Sprintf("%s (%d min)", svc.Name, svc.DurationMinutes)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, prefixService+svc.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbCancel)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func staffKeyboard(staff []models.Staff) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(staff)+1)
	for _, st := range staff {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 "+st.FullName(), prefixStaff+st.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// calendarKeyboard builds a Monday-first month grid. Days outside
// [from, to] are shown as "·" and are not selectable.
func calendarKeyboard(year int, month time.Month, from, to time.Time) tgbotapi.InlineKeyboardMarkup {
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, from.Location())
	weekdayOffset := int(firstDay.Weekday())
	if weekdayOffset == 0 {
		weekdayOffset = 7
	}
	daysInMonth := firstDay.AddDate(0, 1, -1).Day()

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 8)
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(firstDay.Format("January 2006"), cbNoop),
	})
	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, cbNoop))
	}
	rows = append(rows, header)

	fromDay := truncateDay(from)
	toDay := truncateDay(to)

	day := 1
	for day <= daysInMonth {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for col := 1; col <= 7; col++ {
			if day == 1 && col < weekdayOffset || day > daysInMonth {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop))
				continue
			}
			date := time.Date(year, month, day, 0, 0, 0, 0, from.Location())
			if date.Before(fromDay) || date.After(toDay) {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("·", cbNoop))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(
					strconv.Itoa(day), prefixDate+date.Format(models.DateLayout),
				))
			}
			day++
		}
		rows = append(rows, row)
	}

	nav := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	if firstDay.After(fromDay) {
		prev := firstDay.AddDate(0, -1, 0)
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", prefixMonth+prev.Format("2006-01")))
	}
	if next := firstDay.AddDate(0, 1, 0); !next.After(toDay) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶️", prefixMonth+next.Format("2006-01")))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack)))

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// slotsKeyboard lists slots two per row; callback data carries the start
// as unix seconds.
func slotsKeyboard(slots []models.Slot, loc *time.Location, month string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(slots)/2+2)
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range slots {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			s.Label(loc), prefixSlot+strconv.FormatInt(s.Start.Unix(), 10),
		))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Other date", prefixMonth+month),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func detailsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➡️ Continue", cbSkipDetails)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack)),
	)
}

func reviewKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Book", cbConfirm)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbCancel),
		),
	)
}

// expensesKeyboard lists one button per expense plus paging.
func expensesKeyboard(p models.ExpensePage) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(p.Items)+2)
	for _, e := range p.Items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s · $%s", e.Merchant, e.Total), prefixExpense+strconv.FormatInt(e.ID, 10),
		)))
	}

	nav := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	if p.Page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", prefixExpensePage+strconv.Itoa(p.Page-1)))
	}
	if p.HasMore {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶️", prefixExpensePage+strconv.Itoa(p.Page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Add expense", cbExpenseAdd)))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func expenseKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", prefixExpenseEdit+strconv.FormatInt(id, 10)),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ All expenses", prefixExpensePage+"0"),
		),
	)
}

func expenseInputKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", prefixExpensePage+"0")),
	)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
