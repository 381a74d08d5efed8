package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"studiobook/internal/summary"
)

// TelegramSender is the part of tgbotapi.BotAPI used for delivery.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		RetryDelays: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return time.Second
	}
	if attempt >= len(c.RetryDelays) {
		return c.RetryDelays[len(c.RetryDelays)-1]
	}
	return c.RetryDelays[attempt]
}

// Telegram sends the request text to every manager chat.
type Telegram struct {
	sender  TelegramSender
	chatIDs []int64
	limiter *rate.Limiter
	retry   RetryConfig
	logger  *zerolog.Logger
}

// NewTelegram paces sends at perSecond messages per second across all chats.
func NewTelegram(sender TelegramSender, chatIDs []int64, perSecond float64, retry RetryConfig, logger *zerolog.Logger) *Telegram {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Telegram{
		sender:  sender,
		chatIDs: chatIDs,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		retry:   retry,
		logger:  logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, s *summary.Summary) error {
	text := s.Text()
	var errs []error
	for _, chatID := range t.chatIDs {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		if err := t.sendWithRetry(ctx, chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) sendWithRetry(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	var lastErr error
	for attempt := 0; attempt <= t.retry.MaxRetries; attempt++ {
		_, err := t.sender.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		wait := t.retry.delay(attempt)
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) {
			switch {
			case tgErr.Code == 429 && tgErr.RetryAfter > 0:
				wait = time.Duration(tgErr.RetryAfter) * time.Second
			case tgErr.Code == 400 || tgErr.Code == 403:
				// The chat is gone or the message is malformed; retrying won't help.
				return err
			}
		}

		if attempt == t.retry.MaxRetries {
			break
		}
		t.logger.Warn().Err(err).Int64("chat_id", chatID).Int("attempt", attempt+1).Dur("delay", wait).Msg("retrying telegram send")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
