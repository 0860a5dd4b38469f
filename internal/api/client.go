package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taxbook/internal/domain"
	"taxbook/internal/metrics"
	"taxbook/internal/models"

	"github.com/rs/zerolog"
)

const (
	endpointServices     = "/services"
	endpointAvailability = "/availability"
	endpointAppointments = "/appointments"
	endpointExpenses     = "/expense"
	endpointSignIn       = "/auth/signin"
	endpointCheckStatus  = "/auth/check-status"

	servicesCacheKey = "services"
)

// Client talks to the booking backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rateLimiter
	logger     *zerolog.Logger

	cache    domain.QueryCache
	cacheTTL time.Duration
	retry    RetryPolicy
}

// NewClient constructs a client for baseURL (the API_URL value).
func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = models.DefaultRequestTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UseCache configures read-through caching for the service catalog.
func (c *Client) UseCache(cache domain.QueryCache, ttl time.Duration) {
	c.cache = cache
	c.cacheTTL = ttl
}

// UseRateLimit throttles outbound requests per endpoint.
func (c *Client) UseRateLimit(rps float64, burst int) {
	c.limiter = newRateLimiter(rps, burst)
}

// UseRetry retries GET requests that fail with a transport error, 429 or
// 5xx. Writes and availability lookups are never retried.
func (c *Client) UseRetry(policy RetryPolicy) {
	c.retry = policy
}

// ListServices returns the catalog. The backend answers either with a bare
// array or with {"services": [...]}.
func (c *Client) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if c.readCache(ctx, servicesCacheKey, &services) {
		return services, nil
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, endpointServices, "", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if err := decodeList(raw, "services", &services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}

	c.writeCache(ctx, servicesCacheKey, services)
	return services, nil
}

// GetAvailability fetches open ranges for staffID on date (YYYY-MM-DD).
// It makes a single attempt; a newer selection supersedes it instead.
func (c *Client) GetAvailability(ctx context.Context, staffID, date string) ([]models.TimeRange, error) {
	q := url.Values{}
	q.Set("staff", staffID)
	q.Set("date", date)

	var ranges []models.TimeRange
	if err := c.doOnce(ctx, http.MethodGet, endpointAvailability, "", q, nil, nil, &ranges); err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return ranges, nil
}

// CreateAppointment posts a new appointment. idempotencyKey is sent as the
// Idempotency-Key header when non-empty.
func (c *Client) CreateAppointment(
	ctx context.Context,
	token, idempotencyKey string,
	req models.AppointmentRequest,
) (*models.Appointment, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	var appt models.Appointment
	if err := c.doJSONWithHeaders(ctx, http.MethodPost, endpointAppointments, token, nil, headers, req, &appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &appt, nil
}

// ListAppointments returns the caller's appointments with the given status.
func (c *Client) ListAppointments(ctx context.Context, token, status string) ([]models.Appointment, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}

	var appts []models.Appointment
	if err := c.doJSON(ctx, http.MethodGet, endpointAppointments, token, q, nil, &appts); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// ListExpenses returns up to limit of the caller's expenses starting at
// offset, newest first.
func (c *Client) ListExpenses(ctx context.Context, token string, limit, offset int) ([]models.Expense, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, endpointExpenses, token, q, nil, &raw); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	var expenses []models.Expense
	if err := decodeList(raw, "expenses", &expenses); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	return expenses, nil
}

func (c *Client) GetExpense(ctx context.Context, token string, id int64) (*models.Expense, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	var e models.Expense
	if err := c.doJSON(ctx, http.MethodGet, expensePath(id), token, nil, nil, &e); err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	return &e, nil
}

func (c *Client) CreateExpense(ctx context.Context, token string, req models.ExpenseRequest) (*models.Expense, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	var e models.Expense
	if err := c.doJSON(ctx, http.MethodPost, endpointExpenses, token, nil, req, &e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return &e, nil
}

// UpdateExpense patches the expense with id.
func (c *Client) UpdateExpense(ctx context.Context, token string, id int64, req models.ExpenseRequest) (*models.Expense, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	var e models.Expense
	if err := c.doJSON(ctx, http.MethodPatch, expensePath(id), token, nil, req, &e); err != nil {
		return nil, fmt.Errorf("update expense %d: %w", id, err)
	}
	return &e, nil
}

func expensePath(id int64) string {
	return endpointExpenses + "/" + strconv.FormatInt(id, 10)
}

// SignIn exchanges credentials for a user carrying a token.
func (c *Client) SignIn(ctx context.Context, username, password string) (*models.User, error) {
	body := map[string]string{"username": username, "password": password}

	var user models.User
	if err := c.doJSON(ctx, http.MethodPost, endpointSignIn, "", nil, body, &user); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &user, nil
}

// CheckStatus validates token and returns the user with a refreshed token.
func (c *Client) CheckStatus(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var body struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpointCheckStatus, token, nil, nil, &body); err != nil {
		return nil, fmt.Errorf("check status: %w", err)
	}

	user := body.User
	if user == nil {
		user = &models.User{}
	}
	if body.Token != "" {
		user.Token = body.Token
	}
	return user, nil
}

// decodeList accepts a bare JSON array or an object wrapping it under key.
func decodeList(raw json.RawMessage, key string, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(inner, out)
}

// routeLabel replaces numeric path segments with ":id" so metric labels
// and limiter keys stay bounded.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.cache == nil || c.cacheTTL <= 0 {
		return false
	}
	ok, err := c.cache.Get(ctx, key, out)
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	return ok
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, key, val, c.cacheTTL); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	return c.doJSONWithHeaders(ctx, method, path, token, query, nil, body, out)
}

func (c *Client) doJSONWithHeaders(
	ctx context.Context,
	method, path, token string,
	query url.Values,
	headers map[string]string,
	body, out any,
) error {
	err := c.doOnce(ctx, method, path, token, query, headers, body, out)
	for attempt := 1; err != nil && method == http.MethodGet && attempt <= c.retry.MaxRetries && retryable(err); attempt++ {
		delay := c.retry.NextDelay(attempt)
		c.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).Dur("delay", delay).Msg("retrying api request")
		if werr := sleepCtx(ctx, delay); werr != nil {
			return err
		}
		err = c.doOnce(ctx, method, path, token, query, headers, body, out)
	}
	return err
}

func (c *Client) doOnce(
	ctx context.Context,
	method, path, token string,
	query url.Values,
	headers map[string]string,
	body, out any,
) error {
	route := routeLabel(path)
	if err := c.limiter.wait(ctx, route); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncAPI(route, metrics.OutcomeError)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("dur", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.IncAPI(route, metrics.OutcomeError)
		return decodeHTTPError(resp)
	}
	metrics.IncAPI(route, metrics.OutcomeOK)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeHTTPError(resp *http.Response) error {
	httpErr := &HTTPError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return httpErr
	}

	var exc serverException
	if json.Unmarshal(data, &exc) == nil {
		httpErr.Message = exc.text()
	}
	if httpErr.Message == "" {
		httpErr.Message = strings.TrimSpace(string(data))
	}
	return httpErr
}
