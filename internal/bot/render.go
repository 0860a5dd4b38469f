package bot

import (
	"fmt"
	"strings"
	"time"

	"taxbook/internal/booking"
	"taxbook/internal/models"
)

const noComments = "No additional comments provided"

// renderReview is the summary shown before booking.
func renderReview(d booking.Draft) string {
	loc := d.Location()
	var sb strings.Builder

	sb.WriteString("📝 Review your appointment\n\n")
	if d.Service != nil {
		fmt.Fprintf(&sb, "Service: %s\n", d.Service.Name)
		if d.Service.Description != "" {
			fmt.Fprintf(&sb, "About: %s\n", d.Service.Description)
		}
	}
	if d.HasSlot() {
		fmt.Fprintf(&sb, "Duration: %d minutes\n", int(d.End.Sub(d.Start)/time.Minute))
	}
	if d.Staff != nil {
		fmt.Fprintf(&sb, "With: %s\n", d.Staff.FullName())
	}
	if d.HasSlot() {
		fmt.Fprintf(&sb, "Date: %s\n", d.Start.In(loc).Format("Monday, January 2, 2006"))
		fmt.Fprintf(&sb, "Time: %s (%s)\n", d.Slot().Label(loc), d.TimeZone)
	}
	if d.Service != nil && d.Service.Address != "" {
		fmt.Fprintf(&sb, "Address: %s\n", d.Service.Address)
	}

	comments := d.Comments
	if comments == "" {
		comments = noComments
	}
	fmt.Fprintf(&sb, "Comments: %s\n", comments)
	return sb.String()
}

func renderExpenses(p models.ExpensePage, loc *time.Location) string {
	title := fmt.Sprintf("🧾 Your expenses (page %d)", p.Page+1)
	if len(p.Items) == 0 {
		if p.Page == 0 {
			return title + "\n\nNo expenses yet. Add one to get started."
		}
		return title + "\n\nNothing more here."
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	for _, e := range p.Items {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "• %s, total $%s", e.Merchant, e.Total)
		if t, ok := e.Time(); ok {
			fmt.Fprintf(&sb, " on %s", t.In(loc).Format("Jan 2, 2006"))
		}
	}
	return sb.String()
}

func renderExpense(e models.Expense, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 %s\n", e.Merchant)
	if t, ok := e.Time(); ok {
		fmt.Fprintf(&sb, "Date: %s\n", t.In(loc).Format("Monday, January 2, 2006"))
	}
	fmt.Fprintf(&sb, "Total: $%s\n", e.Total)
	if e.Tax != "" {
		fmt.Fprintf(&sb, "Tax: $%s\n", e.Tax)
	}
	if e.Category != nil && e.Category.Name != "" {
		fmt.Fprintf(&sb, "Category: %s\n", e.Category.Name)
	}
	if e.Account != nil && e.Account.Name != "" {
		fmt.Fprintf(&sb, "Account: %s\n", e.Account.Name)
	}
	if e.Notes != "" {
		fmt.Fprintf(&sb, "Notes: %s\n", e.Notes)
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(e.Tags, ", "))
	}
	fmt.Fprintf(&sb, "ID: %d\n", e.ID)
	return sb.String()
}

func renderAppointments(title string, appts []models.Appointment, loc *time.Location) string {
	if len(appts) == 0 {
		return title + "\n\nNothing here yet."
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	for _, a := range appts {
		sb.WriteString("\n")
		sb.WriteString(renderAppointment(a, loc))
	}
	return sb.String()
}

func renderAppointment(a models.Appointment, loc *time.Location) string {
	if a.TimeZone != "" {
		if l, err := time.LoadLocation(a.TimeZone); err == nil {
			loc = l
		}
	}

	var sb strings.Builder
	name := a.Service.Name
	if name == "" {
		name = "Appointment"
	}
	fmt.Fprintf(&sb, "• %s", name)
	if staff := a.Staff.FullName(); staff != "" {
		fmt.Fprintf(&sb, " with %s", staff)
	}
	sb.WriteString("\n")
	if !a.Start.IsZero() {
		slot := models.Slot{Start: a.Start, End: a.End}
		fmt.Fprintf(&sb, "  %s %s\n", a.Start.In(loc).Format("Jan 2, 2006"), slot.Label(loc))
	}
	if a.Status != "" {
		fmt.Fprintf(&sb, "  Status: %s\n", a.Status)
	}
	if a.ZoomMeetingLink != "" {
		fmt.Fprintf(&sb, "  Meeting: %s\n", a.ZoomMeetingLink)
	}
	if a.ID != "" {
		fmt.Fprintf(&sb, "  ID: %s\n", a.ID)
	}
	return sb.String()
}
