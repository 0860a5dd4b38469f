package domain

import (
	"context"
	"time"

	"taxbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AvailabilityAPI returns the open ranges of a staff member on a date (YYYY-MM-DD).
type AvailabilityAPI interface {
	GetAvailability(ctx context.Context, staffID, date string) ([]models.TimeRange, error)
}

type AppointmentAPI interface {
	CreateAppointment(ctx context.Context, token, idempotencyKey string, req models.AppointmentRequest) (*models.Appointment, error)
	ListAppointments(ctx context.Context, token, status string) ([]models.Appointment, error)
}

type ExpenseAPI interface {
	ListExpenses(ctx context.Context, token string, limit, offset int) ([]models.Expense, error)
	GetExpense(ctx context.Context, token string, id int64) (*models.Expense, error)
	CreateExpense(ctx context.Context, token string, req models.ExpenseRequest) (*models.Expense, error)
	UpdateExpense(ctx context.Context, token string, id int64, req models.ExpenseRequest) (*models.Expense, error)
}

type CatalogAPI interface {
	ListServices(ctx context.Context) ([]models.Service, error)
}

type AuthAPI interface {
	SignIn(ctx context.Context, username, password string) (*models.User, error)
	CheckStatus(ctx context.Context, token string) (*models.User, error)
}

// QueryCache holds JSON-encoded query results keyed by string.
type QueryCache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Invalidate(ctx context.Context, prefix string) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// TokenStore persists auth tokens per chat user.
type TokenStore interface {
	SaveToken(ctx context.Context, userID int64, token string) error
	GetToken(ctx context.Context, userID int64) (string, error)
	DeleteToken(ctx context.Context, userID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendDocument(chatID int64, path string) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type CatalogService interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
}

type AuthService interface {
	SignIn(ctx context.Context, userID int64, username, password string) (*models.User, error)
	CheckStatus(ctx context.Context, userID int64) (models.AuthStatus, error)
	Logout(ctx context.Context, userID int64) error
	Status(userID int64) models.AuthStatus
	Token(ctx context.Context, userID int64) (string, error)
}

type AppointmentService interface {
	Pending(ctx context.Context, userID int64, token string) ([]models.Appointment, error)
	Past(ctx context.Context, userID int64, token string) ([]models.Appointment, error)
	InvalidatePending(ctx context.Context, userID int64) error
}

type ExpenseService interface {
	Page(ctx context.Context, userID int64, token string, page int) (models.ExpensePage, error)
	Get(ctx context.Context, userID int64, token string, id int64) (*models.Expense, error)
	Create(ctx context.Context, userID int64, token string, in models.ExpenseInput) (*models.Expense, error)
	Update(ctx context.Context, userID int64, token string, id int64, in models.ExpenseInput) (*models.Expense, error)
}
