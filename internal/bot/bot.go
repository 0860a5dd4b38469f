package bot

import (
	"context"
	"time"

	"taxbook/internal/availability"
	"taxbook/internal/booking"
	"taxbook/internal/config"
	"taxbook/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

type Bot struct {
	tgService    domain.TelegramService
	config       *config.Config
	sessions     *booking.Sessions
	fetcher      *availability.Fetcher
	catalog      domain.CatalogService
	auth         domain.AuthService
	appointments domain.AppointmentService
	expenses     domain.ExpenseService
	limiter      domain.QueryCache
	screens      *stateStore
	metrics      *Metrics
	logger       *zerolog.Logger

	loc *time.Location
	now func() time.Time
}

func NewBot(
	tgService domain.TelegramService,
	cfg *config.Config,
	sessions *booking.Sessions,
	fetcher *availability.Fetcher,
	catalog domain.CatalogService,
	auth domain.AuthService,
	appointments domain.AppointmentService,
	expenses domain.ExpenseService,
	limiter domain.QueryCache,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}

	return &Bot{
		tgService:    tgService,
		config:       cfg,
		sessions:     sessions,
		fetcher:      fetcher,
		catalog:      catalog,
		auth:         auth,
		appointments: appointments,
		expenses:     expenses,
		limiter:      limiter,
		screens:      newStateStore(),
		metrics:      metrics,
		logger:       logger,
		loc:          cfg.Booking.Location(),
		now:          time.Now,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID, chatID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID, chatID = update.Message.From.ID, update.Message.Chat.ID
		case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
			userID = update.CallbackQuery.From.ID
			if update.CallbackQuery.Message != nil {
				chatID = update.CallbackQuery.Message.Chat.ID
			}
		}

		if userID == 0 {
			return
		}

		if !b.allow(updateCtx, userID) {
			if b.metrics != nil {
				b.metrics.RateLimited.Inc()
			}
			if update.Message != nil {
				b.sendMessage(chatID, "⚠️ You are sending messages too quickly. Please wait a moment.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}

		b.handleMessage(updateCtx, update.Message)
	})
}

func (b *Bot) allow(ctx context.Context, userID int64) bool {
	if b.limiter == nil {
		return true
	}
	allowed, err := b.limiter.CheckRateLimit(ctx, userID, b.config.Bot.RateLimitMessages, b.config.Bot.RateWindow())
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if !allowed {
		b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
	}
	return allowed
}

func (b *Bot) log(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return b.logger
	}
	return l
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}
