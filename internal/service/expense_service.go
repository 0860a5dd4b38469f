package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"taxbook/internal/domain"
	"taxbook/internal/events"
	"taxbook/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrMerchantRequired      = errors.New("merchant is required")
	ErrInvalidAmount         = errors.New("amount must be a decimal number")
	ErrExpenseDateRequired   = errors.New("expense date is required")
	ErrExpensesNotSetUp      = errors.New("expense account and category are not configured")
	ErrInvalidExpenseID      = errors.New("expense id is invalid")
	ErrExpensePageOutOfRange = errors.New("expense page is out of range")
)

var amountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ExpenseOptions configures where new expenses are filed and how the list
// is paged and cached.
type ExpenseOptions struct {
	PageSize   int
	CacheTTL   time.Duration
	AccountID  int64
	CategoryID int64
}

// ExpenseService lists and saves the signed-in user's receipts. Pages and
// details are cached per user and dropped on every write.
type ExpenseService struct {
	api    domain.ExpenseAPI
	cache  domain.QueryCache
	opts   ExpenseOptions
	logger *zerolog.Logger
}

func NewExpenseService(
	expenseAPI domain.ExpenseAPI,
	cache domain.QueryCache,
	opts ExpenseOptions,
	logger *zerolog.Logger,
) *ExpenseService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.PageSize <= 0 {
		opts.PageSize = models.ExpensePageSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = models.ExpensesCacheTTL
	}
	return &ExpenseService{
		api:    expenseAPI,
		cache:  cache,
		opts:   opts,
		logger: logger,
	}
}

func expensesPrefix(userID int64) string {
	return fmt.Sprintf("expenses:%d:", userID)
}

func expensePageKey(userID int64, page int) string {
	return fmt.Sprintf("%spage:%d", expensesPrefix(userID), page)
}

func expenseKey(userID int64, id int64) string {
	return fmt.Sprintf("%sitem:%d", expensesPrefix(userID), id)
}

// Page returns page (zero-based) of the user's expenses. One extra row is
// requested to tell whether another page follows.
func (s *ExpenseService) Page(ctx context.Context, userID int64, token string, page int) (models.ExpensePage, error) {
	if page < 0 {
		return models.ExpensePage{}, ErrExpensePageOutOfRange
	}
	key := expensePageKey(userID, page)
	var cached models.ExpensePage
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	size := s.opts.PageSize
	items, err := s.api.ListExpenses(ctx, token, size+1, page*size)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Int("page", page).Msg("failed to list expenses")
		return models.ExpensePage{}, err
	}

	result := models.ExpensePage{Items: items, Page: page}
	if len(items) > size {
		result.Items = items[:size]
		result.HasMore = true
	}
	s.writeCache(ctx, key, result)
	return result, nil
}

func (s *ExpenseService) Get(ctx context.Context, userID int64, token string, id int64) (*models.Expense, error) {
	if id <= 0 {
		return nil, ErrInvalidExpenseID
	}
	key := expenseKey(userID, id)
	var cached models.Expense
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	e, err := s.api.GetExpense(ctx, token, id)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, e)
	return e, nil
}

// Create validates in and files it under the configured account and
// category.
func (s *ExpenseService) Create(ctx context.Context, userID int64, token string, in models.ExpenseInput) (*models.Expense, error) {
	if in.Date.IsZero() {
		return nil, ErrExpenseDateRequired
	}
	req, err := s.request(in)
	if err != nil {
		return nil, err
	}

	e, err := s.api.CreateExpense(ctx, token, req)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to create expense")
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.logger.Info().Int64("user_id", userID).Int64("expense_id", e.ID).Msg("expense created")
	return e, nil
}

// Update replaces the editable fields of expense id. A zero Date keeps the
// stored date.
func (s *ExpenseService) Update(ctx context.Context, userID int64, token string, id int64, in models.ExpenseInput) (*models.Expense, error) {
	if id <= 0 {
		return nil, ErrInvalidExpenseID
	}
	req, err := s.request(in)
	if err != nil {
		return nil, err
	}

	e, err := s.api.UpdateExpense(ctx, token, id, req)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Int64("expense_id", id).Msg("failed to update expense")
		return nil, err
	}
	s.invalidate(ctx, userID)
	return e, nil
}

// Subscribe drops a user's cached expenses when they sign out.
func (s *ExpenseService) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventSignedOut, func(ev *events.Event) error {
		var p events.UserEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		s.invalidate(context.Background(), p.UserID)
		return nil
	})
}

func (s *ExpenseService) request(in models.ExpenseInput) (models.ExpenseRequest, error) {
	if s.opts.AccountID <= 0 || s.opts.CategoryID <= 0 {
		return models.ExpenseRequest{}, ErrExpensesNotSetUp
	}
	merchant := strings.TrimSpace(in.Merchant)
	if merchant == "" {
		return models.ExpenseRequest{}, ErrMerchantRequired
	}
	total, err := parseAmount(in.Total)
	if err != nil {
		return models.ExpenseRequest{}, fmt.Errorf("total: %w", err)
	}
	tax, err := parseAmount(in.Tax)
	if err != nil {
		return models.ExpenseRequest{}, fmt.Errorf("tax: %w", err)
	}

	req := models.ExpenseRequest{
		AccountID:  s.opts.AccountID,
		CategoryID: s.opts.CategoryID,
		Merchant:   merchant,
		Notes:      strings.TrimSpace(in.Notes),
		Total:      total,
		Tax:        tax,
	}
	if !in.Date.IsZero() {
		req.Date = in.Date.UTC().Format(time.RFC3339)
	}
	return req, nil
}

func parseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if !amountPattern.MatchString(raw) {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

func (s *ExpenseService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, expensesPrefix(userID)); err != nil {
		s.logger.Debug().Err(err).Int64("user_id", userID).Msg("expense cache invalidation failed")
	}
}

func (s *ExpenseService) readCache(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, out)
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("expense cache read failed")
		return false
	}
	return ok
}

func (s *ExpenseService) writeCache(ctx context.Context, key string, val any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, val, s.opts.CacheTTL); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("expense cache write failed")
	}
}
