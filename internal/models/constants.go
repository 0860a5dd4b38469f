package models

import "time"

const (
	AppointmentPending   = "pending"
	AppointmentPast      = "past"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

const DateLayout = "2006-01-02"

const (
	// DefaultSlotLength is the fixed length of a bookable slot.
	DefaultSlotLength = 60 * time.Minute

	// MaxCommentLength limits the free-text comment, in characters.
	MaxCommentLength = 500

	// MaxAdvanceDays is how far ahead the date picker reaches.
	MaxAdvanceDays = 30

	// PendingAppointmentsTTL keeps the pending list fresh for a minute.
	PendingAppointmentsTTL = time.Minute

	// ExpensesCacheTTL caches expense pages and details per user.
	ExpensesCacheTTL = time.Minute

	// ExpensePageSize is how many expenses one list page shows.
	ExpensePageSize = 10

	// ServicesCacheTTL caches the service catalog.
	ServicesCacheTTL = 10 * time.Minute

	RateLimitMessages = 20
	RateLimitWindow   = 60 // seconds

	DefaultRequestTimeout = 10 * time.Second
)
