package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"taxbook/internal/availability"
	"taxbook/internal/booking"
	"taxbook/internal/config"
	"taxbook/internal/domain"
	"taxbook/internal/models"
	"taxbook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

type mockTelegramService struct {
	domain.TelegramService
	updatesChan chan tgbotapi.Update

	mu        sync.Mutex
	sent      []sentMessage
	documents []string
	answered  []string
}

func (m *mockTelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendWithInlineKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: &kb})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendDocument(chatID int64, path string) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, path)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) AnswerCallback(callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, callbackID)
	return nil
}

func (m *mockTelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "test_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {}

func (m *mockTelegramService) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockTelegramService) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Text)
	}
	return out
}

func (m *mockTelegramService) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type mockCatalog struct {
	services []models.Service
	err      error
}

func (m *mockCatalog) ListServices(ctx context.Context) ([]models.Service, error) {
	return m.services, m.err
}

func (m *mockCatalog) GetService(ctx context.Context, id string) (*models.Service, error) {
	for _, s := range m.services {
		if s.ID == id {
			svc := s
			return &svc, nil
		}
	}
	return nil, service.ErrServiceNotFound
}

type mockAuth struct {
	mu        sync.Mutex
	token     string
	signInErr error
	email     string
	password  string
	loggedOut bool
}

func (m *mockAuth) SignIn(ctx context.Context, userID int64, username, password string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email, m.password = username, password
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	m.token = "signed-in-token"
	return &models.User{Email: username, Token: m.token}, nil
}

func (m *mockAuth) CheckStatus(ctx context.Context, userID int64) (models.AuthStatus, error) {
	return m.Status(userID), nil
}

func (m *mockAuth) Logout(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.loggedOut = true
	return nil
}

func (m *mockAuth) Status(userID int64) models.AuthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return models.AuthUnauthenticated
	}
	return models.AuthAuthenticated
}

func (m *mockAuth) Token(ctx context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", service.ErrNotSignedIn
	}
	return m.token, nil
}

type mockAppointments struct {
	pending []models.Appointment
	past    []models.Appointment
	err     error
}

func (m *mockAppointments) Pending(ctx context.Context, userID int64, token string) ([]models.Appointment, error) {
	return m.pending, m.err
}

func (m *mockAppointments) Past(ctx context.Context, userID int64, token string) ([]models.Appointment, error) {
	return m.past, m.err
}

func (m *mockAppointments) InvalidatePending(ctx context.Context, userID int64) error {
	return nil
}

type mockExpenses struct {
	mu      sync.Mutex
	pages   map[int]models.ExpensePage
	items   map[int64]models.Expense
	created []models.ExpenseInput
	updated map[int64]models.ExpenseInput
	err     error
}

func (m *mockExpenses) Page(ctx context.Context, userID int64, token string, page int) (models.ExpensePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.ExpensePage{}, m.err
	}
	p := m.pages[page]
	p.Page = page
	return p, nil
}

func (m *mockExpenses) Get(ctx context.Context, userID int64, token string, id int64) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok {
		return nil, service.ErrInvalidExpenseID
	}
	return &e, nil
}

func (m *mockExpenses) Create(ctx context.Context, userID int64, token string, in models.ExpenseInput) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, in)
	return &models.Expense{ID: 100, Merchant: in.Merchant, Total: models.Amount(in.Total), Tax: models.Amount(in.Tax), Notes: in.Notes}, nil
}

func (m *mockExpenses) Update(ctx context.Context, userID int64, token string, id int64, in models.ExpenseInput) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.updated == nil {
		m.updated = make(map[int64]models.ExpenseInput)
	}
	m.updated[id] = in
	return &models.Expense{ID: id, Merchant: in.Merchant, Total: models.Amount(in.Total), Tax: models.Amount(in.Tax)}, nil
}

type mockAvailabilityAPI struct {
	ranges []models.TimeRange
	err    error
}

func (m *mockAvailabilityAPI) GetAvailability(ctx context.Context, staffID, date string) ([]models.TimeRange, error) {
	return m.ranges, m.err
}

type mockAppointmentAPI struct {
	mu   sync.Mutex
	reqs []models.AppointmentRequest
	keys []string
	err  error
}

func (m *mockAppointmentAPI) CreateAppointment(ctx context.Context, token, key string, req models.AppointmentRequest) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	m.keys = append(m.keys, key)
	if m.err != nil {
		return nil, m.err
	}
	return &models.Appointment{ID: "abc123", Start: req.Start, End: req.End, Status: models.AppointmentPending}, nil
}

func (m *mockAppointmentAPI) ListAppointments(ctx context.Context, token, status string) ([]models.Appointment, error) {
	return nil, nil
}

type testMocks struct {
	tg           *mockTelegramService
	catalog      *mockCatalog
	auth         *mockAuth
	appointments *mockAppointments
	expenses     *mockExpenses
	availability *mockAvailabilityAPI
	backend      *mockAppointmentAPI
}

var testNow = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

const (
	testUser = int64(42)
	testDate = "2024-03-05"
)

func testServices() []models.Service {
	return []models.Service{
		{
			ID:              "svc-1",
			Name:            "Tax Consultation",
			DurationMinutes: 60,
			Address:         "1 Main St",
			IsActive:        true,
			Staff: []models.Staff{
				{ID: "st-1", FirstName: "Jane", LastName: "Doe"},
				{ID: "st-2", FirstName: "John", LastName: "Roe"},
			},
		},
	}
}

func setupTestBot(t *testing.T) (*Bot, *testMocks) {
	t.Helper()

	mocks := &testMocks{
		tg:           &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 1)},
		catalog:      &mockCatalog{services: testServices()},
		auth:         &mockAuth{token: "token-1"},
		appointments: &mockAppointments{},
		expenses:     &mockExpenses{},
		availability: &mockAvailabilityAPI{ranges: []models.TimeRange{{
			Start: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		}}},
		backend: &mockAppointmentAPI{},
	}

	logger := zerolog.New(io.Discard)
	cfg := &config.Config{
		Booking: config.BookingConfig{
			SlotMinutes:      60,
			MaxCommentLength: 20,
			MaxAdvanceDays:   30,
			TimeZone:         "UTC",
		},
		Bot: config.BotConfig{
			RateLimitMessages: 20,
			RateLimitWindow:   60,
			ExportPath:        t.TempDir(),
		},
	}

	sub := booking.NewSubmitter(mocks.backend, nil, &logger)
	sessions := booking.NewSessions(sub, cfg.Booking.MaxCommentLength)
	fetcher := availability.NewFetcher(mocks.availability, cfg.Booking.SlotLength(), &logger)

	b := NewBot(mocks.tg, cfg, sessions, fetcher, mocks.catalog, mocks.auth, mocks.appointments, mocks.expenses,
		nil, NewMetrics(prometheus.NewRegistry()), &logger)
	b.now = func() time.Time { return testNow }
	return b, mocks
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-" + data,
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: 1,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	}
}

func hasButton(kb *tgbotapi.InlineKeyboardMarkup, data string) bool {
	if kb == nil {
		return false
	}
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil && *btn.CallbackData == data {
				return true
			}
		}
	}
	return false
}

func containsText(texts []string, sub string) bool {
	for _, t := range texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

var errBackend = errors.New("backend down")
