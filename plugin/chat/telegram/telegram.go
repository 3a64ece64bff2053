// Package telegram runs the Telegram Bot API frontend: long polling, inline
// feedback buttons, and subscription invoices.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/kokoro/companion"
)

// Bot API flood control allows roughly 30 messages per second overall.
const sendRate = 25

const subscriptionPriceCents = 499

// Engine is the turn-processing surface the bot drives.
type Engine interface {
	HandleMessage(ctx context.Context, userID int64, text string) (*companion.TurnResult, error)
	HandleFeedback(ctx context.Context, turnID int64, score float64) error
	HandlePaymentConfirmed(ctx context.Context, userID int64) error
}

// Config holds bot credentials.
type Config struct {
	BotToken             string
	PaymentProviderToken string
}

// Bot is the long-polling Telegram runner.
type Bot struct {
	api     *tgbotapi.BotAPI
	engine  Engine
	config  Config
	limiter *rate.Limiter
}

// NewBot creates the bot and verifies the token against the Bot API.
func NewBot(config Config, engine Engine) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	slog.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Bot{
		api:     api,
		engine:  engine,
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendRate),
	}, nil
}

// Run polls for updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			slog.Info("telegram bot stopped")
			return ctx.Err()
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		b.answerPreCheckout(update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		b.handlePayment(ctx, update.Message)
	case update.Message != nil && update.Message.Text != "":
		b.handleText(ctx, update.Message)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	text := msg.Text
	if msg.IsCommand() {
		if msg.Command() != "start" {
			return
		}
		text = "hello"
	}

	result, err := b.engine.HandleMessage(ctx, msg.From.ID, text)
	if err != nil {
		slog.Error("turn processing failed", "user", msg.From.ID, "error", err)
		return
	}

	for _, notice := range result.Notices {
		b.send(ctx, tgbotapi.NewMessage(msg.Chat.ID, notice))
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, result.Reply)
	if result.CompanionTurnID != 0 {
		reply.ReplyMarkup = feedbackKeyboard(result.CompanionTurnID)
	}
	b.send(ctx, reply)

	if result.OfferSubscription {
		b.sendInvoice(ctx, msg.Chat.ID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	turnID, score, err := parseFeedbackData(callback.Data)
	if err != nil {
		slog.Warn("ignoring malformed callback", "data", callback.Data)
		return
	}
	if err := b.engine.HandleFeedback(ctx, turnID, score); err != nil {
		slog.Warn("feedback failed", "turn", turnID, "error", err)
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		slog.Warn("callback ack failed", "error", err)
	}
}

func (b *Bot) handlePayment(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.engine.HandlePaymentConfirmed(ctx, msg.From.ID); err != nil {
		slog.Error("payment confirmation failed", "user", msg.From.ID, "error", err)
	}
}

func (b *Bot) answerPreCheckout(query *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if _, err := b.api.Request(answer); err != nil {
		slog.Error("pre-checkout answer failed", "error", err)
	}
}

func (b *Bot) sendInvoice(ctx context.Context, chatID int64) {
	if b.config.PaymentProviderToken == "" {
		slog.Warn("subscription offer without payment provider token", "chat", chatID)
		return
	}
	invoice := tgbotapi.NewInvoice(
		chatID,
		"Kokoro subscription",
		"Unlimited conversation time with Kokoro.",
		"kokoro-subscription",
		b.config.PaymentProviderToken,
		"", // deprecated start parameter
		"USD",
		[]tgbotapi.LabeledPrice{{Label: "Monthly subscription", Amount: subscriptionPriceCents}},
	)
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := b.api.Request(invoice); err != nil {
		slog.Error("invoice send failed", "chat", chatID, "error", err)
	}
}

// SendText delivers one plain message. For private chats the chat ID equals
// the user ID. Used by background workers for proactive messages.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.Wrap(err, "telegram send failed")
	}
	return nil
}

func (b *Bot) send(ctx context.Context, msg tgbotapi.MessageConfig) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("telegram send failed", "chat", msg.ChatID, "error", err)
	}
}

func feedbackKeyboard(turnID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", feedbackData(turnID, 1)),
			tgbotapi.NewInlineKeyboardButtonData("👎", feedbackData(turnID, -1)),
		),
	)
}

func feedbackData(turnID int64, score int) string {
	return fmt.Sprintf("feedback:%d:%d", turnID, score)
}

func parseFeedbackData(data string) (turnID int64, score float64, err error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "feedback" {
		return 0, 0, errors.Errorf("not a feedback callback: %s", data)
	}
	turnID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "bad turn id")
	}
	scoreInt, err := strconv.Atoi(parts[2])
	if err != nil || (scoreInt != 1 && scoreInt != -1) {
		return 0, 0, errors.Errorf("bad score: %s", parts[2])
	}
	return turnID, float64(scoreInt), nil
}

// WaitReady blocks until the Bot API responds to a getMe call or the timeout
// passes. Used by startup to fail fast on bad tokens.
func (b *Bot) WaitReady(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		_, err := b.api.GetMe()
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errors.New("telegram api not reachable")
	}
}
