package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxbook/internal/events"
	"taxbook/internal/models"
	"taxbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExpenseAPI struct {
	mock.Mock
}

func (m *mockExpenseAPI) ListExpenses(ctx context.Context, token string, limit, offset int) ([]models.Expense, error) {
	args := m.Called(ctx, token, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Expense), args.Error(1)
}

func (m *mockExpenseAPI) GetExpense(ctx context.Context, token string, id int64) (*models.Expense, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *mockExpenseAPI) CreateExpense(ctx context.Context, token string, req models.ExpenseRequest) (*models.Expense, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *mockExpenseAPI) UpdateExpense(ctx context.Context, token string, id int64, req models.ExpenseRequest) (*models.Expense, error) {
	args := m.Called(ctx, token, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

var expenseOpts = ExpenseOptions{PageSize: 2, CacheTTL: time.Minute, AccountID: 1, CategoryID: 5}

func expenses(ids ...int64) []models.Expense {
	out := make([]models.Expense, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Expense{ID: id, Merchant: "m", Total: "1", Tax: "0"})
	}
	return out
}

func TestExpenseService_Page(t *testing.T) {
	ctx := context.Background()
	apiMock := new(mockExpenseAPI)
	svc := NewExpenseService(apiMock, repository.NewMemoryQueryCache(), expenseOpts, nil)

	apiMock.On("ListExpenses", ctx, "tok", 3, 0).Return(expenses(1, 2, 3), nil).Once()
	page, err := svc.Page(ctx, 1, "tok", 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	_, err = svc.Page(ctx, 1, "tok", 0)
	require.NoError(t, err)
	apiMock.AssertNumberOfCalls(t, "ListExpenses", 1)

	apiMock.On("ListExpenses", ctx, "tok", 3, 2).Return(expenses(3), nil).Once()
	page, err = svc.Page(ctx, 1, "tok", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)

	_, err = svc.Page(ctx, 1, "tok", -1)
	assert.ErrorIs(t, err, ErrExpensePageOutOfRange)

	apiMock.On("ListExpenses", ctx, "tok", 3, 0).Return(nil, errors.New("down")).Once()
	_, err = svc.Page(ctx, 2, "tok", 0)
	assert.Error(t, err)
}

func TestExpenseService_CreateValidates(t *testing.T) {
	ctx := context.Background()
	apiMock := new(mockExpenseAPI)
	svc := NewExpenseService(apiMock, nil, expenseOpts, nil)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   models.ExpenseInput
		want error
	}{
		{"NoDate", models.ExpenseInput{Merchant: "Cafe", Total: "1", Tax: "0"}, ErrExpenseDateRequired},
		{"NoMerchant", models.ExpenseInput{Merchant: "  ", Total: "1", Tax: "0", Date: now}, ErrMerchantRequired},
		{"BadTotal", models.ExpenseInput{Merchant: "Cafe", Total: "1,50", Tax: "0", Date: now}, ErrInvalidAmount},
		{"NegativeTax", models.ExpenseInput{Merchant: "Cafe", Total: "1", Tax: "-1", Date: now}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, "tok", tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	unset := NewExpenseService(apiMock, nil, ExpenseOptions{}, nil)
	_, err := unset.Create(ctx, 1, "tok", models.ExpenseInput{Merchant: "Cafe", Total: "1", Tax: "0", Date: now})
	assert.ErrorIs(t, err, ErrExpensesNotSetUp)

	apiMock.AssertNotCalled(t, "CreateExpense", mock.Anything, mock.Anything, mock.Anything)
}

func TestExpenseService_CreateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	apiMock := new(mockExpenseAPI)
	svc := NewExpenseService(apiMock, repository.NewMemoryQueryCache(), expenseOpts, nil)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	apiMock.On("ListExpenses", ctx, "tok", 3, 0).Return(expenses(1), nil).Twice()
	_, err := svc.Page(ctx, 1, "tok", 0)
	require.NoError(t, err)

	want := models.ExpenseRequest{
		AccountID:  1,
		CategoryID: 5,
		Date:       "2024-03-01T10:00:00Z",
		Merchant:   "Office Depot",
		Notes:      "printer ink",
		Total:      42.5,
		Tax:        3.4,
	}
	apiMock.On("CreateExpense", ctx, "tok", want).Return(&models.Expense{ID: 9, Merchant: "Office Depot"}, nil).Once()

	e, err := svc.Create(ctx, 1, "tok", models.ExpenseInput{
		Merchant: " Office Depot ",
		Total:    "42.50",
		Tax:      "3.4",
		Notes:    "printer ink",
		Date:     now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), e.ID)

	_, err = svc.Page(ctx, 1, "tok", 0)
	require.NoError(t, err)
	apiMock.AssertNumberOfCalls(t, "ListExpenses", 2)
}

func TestExpenseService_GetAndUpdate(t *testing.T) {
	ctx := context.Background()
	apiMock := new(mockExpenseAPI)
	svc := NewExpenseService(apiMock, repository.NewMemoryQueryCache(), expenseOpts, nil)

	apiMock.On("GetExpense", ctx, "tok", int64(4)).Return(&models.Expense{ID: 4, Merchant: "Cafe"}, nil).Twice()
	e, err := svc.Get(ctx, 1, "tok", 4)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", e.Merchant)
	_, err = svc.Get(ctx, 1, "tok", 4)
	require.NoError(t, err)
	apiMock.AssertNumberOfCalls(t, "GetExpense", 1)

	apiMock.On("UpdateExpense", ctx, "tok", int64(4), mock.MatchedBy(func(req models.ExpenseRequest) bool {
		return req.Merchant == "Cafe Luna" && req.Date == "" && req.Total == 13
	})).Return(&models.Expense{ID: 4, Merchant: "Cafe Luna"}, nil).Once()

	updated, err := svc.Update(ctx, 1, "tok", 4, models.ExpenseInput{Merchant: "Cafe Luna", Total: "13", Tax: "0"})
	require.NoError(t, err)
	assert.Equal(t, "Cafe Luna", updated.Merchant)

	_, err = svc.Get(ctx, 1, "tok", 4)
	require.NoError(t, err)
	apiMock.AssertNumberOfCalls(t, "GetExpense", 2)

	_, err = svc.Get(ctx, 1, "tok", 0)
	assert.ErrorIs(t, err, ErrInvalidExpenseID)
	_, err = svc.Update(ctx, 1, "tok", 0, models.ExpenseInput{})
	assert.ErrorIs(t, err, ErrInvalidExpenseID)
}

func TestExpenseService_SignOutDropsCache(t *testing.T) {
	ctx := context.Background()
	apiMock := new(mockExpenseAPI)
	svc := NewExpenseService(apiMock, repository.NewMemoryQueryCache(), expenseOpts, nil)
	bus := events.NewEventBus(nil)
	svc.Subscribe(bus)

	apiMock.On("ListExpenses", ctx, "tok", 3, 0).Return(expenses(1), nil)
	_, err := svc.Page(ctx, 1, "tok", 0)
	require.NoError(t, err)
	_, err = svc.Page(ctx, 2, "tok", 0)
	require.NoError(t, err)

	require.NoError(t, bus.PublishJSON(events.EventSignedOut, events.UserEventPayload{UserID: 1}))

	_, err = svc.Page(ctx, 1, "tok", 0)
	require.NoError(t, err)
	_, err = svc.Page(ctx, 2, "tok", 0)
	require.NoError(t, err)
	apiMock.AssertNumberOfCalls(t, "ListExpenses", 3)
}
