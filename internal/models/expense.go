package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Amount is a decimal the backend sends either as a string or a number.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// ExpenseRef is the account or category an expense is filed under.
type ExpenseRef struct {
	Name string `json:"name"`
}

// Expense is a receipt stored by the backend.
type Expense struct {
	ID        int64       `json:"id"`
	Merchant  string      `json:"merchant"`
	Date      string      `json:"date"`
	Total     Amount      `json:"total"`
	Tax       Amount      `json:"tax"`
	Notes     string      `json:"notes,omitempty"`
	Image     string      `json:"image,omitempty"`
	CreatedAt string      `json:"createdAt,omitempty"`
	Account   *ExpenseRef `json:"account,omitempty"`
	Category  *ExpenseRef `json:"category,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
}

// Time parses Date. ok is false when the backend sent no usable timestamp.
func (e Expense) Time() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, DateLayout} {
		if t, err := time.Parse(layout, e.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExpenseRequest is the create and update payload. Date is omitted on
// updates that keep the stored date.
type ExpenseRequest struct {
	AccountID     int64   `json:"accountId"`
	CategoryID    int64   `json:"categoryId"`
	SubcategoryID *int64  `json:"subcategoryId,omitempty"`
	Date          string  `json:"date,omitempty"`
	Merchant      string  `json:"merchant"`
	Notes         string  `json:"notes,omitempty"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
}

// ExpenseInput is what the user typed, before validation.
type ExpenseInput struct {
	Merchant string
	Total    string
	Tax      string
	Notes    string
	Date     time.Time
}

// ExpensePage is one page of the expense list, newest first.
type ExpensePage struct {
	Items   []Expense `json:"items"`
	Page    int       `json:"page"`
	HasMore bool      `json:"hasMore"`
}
