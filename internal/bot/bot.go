// Package bot answers schedule commands over Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LeniadVe/DryCleaning/internal/input"
	"github.com/LeniadVe/DryCleaning/internal/model"
	"github.com/LeniadVe/DryCleaning/internal/schedule"
	"github.com/LeniadVe/DryCleaning/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

const helpText = `Commands:
/hours - current schedule
/eta <minutes> <yyyy-MM-dd> [HH:mm] - completion time
/week <open> <close> - hours for every day
/day <weekday> <open> <close> - hours for one weekday
/date <yyyy-MM-dd> <open> <close> - hours for one date
/closedays <weekday,...> - close weekdays
/closedates <yyyy-MM-dd,...> - close dates`

const msgManagersOnly = "Only managers can change the schedule."

// Bot is a Telegram front end for the schedule service.
type Bot struct {
	service  *service.ScheduleService
	managers map[int64]struct{}
	tg       telegramClient
	logger   *zerolog.Logger
}

// New connects to Telegram with token.
func New(token string, debug bool, svc *service.ScheduleService, managers []int64, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	api.Debug = debug
	return newBot(&realTelegramClient{api: api}, svc, managers, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, svc *service.ScheduleService, managers []int64, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, svc, managers, logger)
}

func newBot(tg telegramClient, svc *service.ScheduleService, managers []int64, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("schedule service is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	mgrs := make(map[int64]struct{}, len(managers))
	for _, id := range managers {
		mgrs[id] = struct{}{}
	}
	l := logger.With().Str("component", "bot").Logger()
	return &Bot{service: svc, managers: mgrs, tg: tg, logger: &l}, nil
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("bot authorized")

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := service.WithRequestID(l.WithContext(ctx), requestID)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	zerolog.Ctx(ctx).Debug().
		Int64("user_id", msg.From.ID).
		Str("text", msg.Text).
		Msg("Handling message")

	b.reply(ctx, msg.Chat.ID, b.respond(ctx, msg.From.ID, msg.Text))
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("send reply")
	}
}

func (b *Bot) isManager(userID int64) bool {
	_, ok := b.managers[userID]
	return ok
}

// respond returns the reply text for a command, or "" for non-commands.
func (b *Bot) respond(ctx context.Context, userID int64, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	// Strip "@botname" suffix used in group chats.
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	switch cmd {
	case "/start", "/help":
		return helpText
	case "/hours":
		return formatSchedule(b.service.Snapshot())
	case "/eta":
		return b.eta(ctx, args)
	case "/week", "/day", "/date", "/closedays", "/closedates":
		if !b.isManager(userID) {
			return msgManagersOnly
		}
		return b.mutate(ctx, cmd, args)
	default:
		return "Unknown command. " + helpText
	}
}

func (b *Bot) eta(ctx context.Context, args []string) string {
	if len(args) < 2 || len(args) > 3 {
		return "Usage: /eta <minutes> <yyyy-MM-dd> [HH:mm]"
	}
	minutes, err := input.Minutes(args[0])
	if err != nil {
		return err.Error()
	}
	start, err := input.DateTime(strings.Join(args[1:], " "))
	if err != nil {
		return err.Error()
	}

	completion, err := b.service.ComputeCompletion(ctx, minutes, start)
	switch {
	case err == nil:
		return "Ready by " + completion
	case errors.Is(err, schedule.ErrNoSchedule), errors.Is(err, schedule.ErrSearchHorizon):
		return err.Error()
	default:
		return "Something went wrong, please try again later."
	}
}

func (b *Bot) mutate(ctx context.Context, cmd string, args []string) string {
	switch cmd {
	case "/week":
		if len(args) != 2 {
			return "Usage: /week <open> <close>"
		}
		hours, err := input.WorkHours(args[0], args[1])
		if err != nil {
			return err.Error()
		}
		return daysOutcome(b.service.SetWeekHours(ctx, hours, nil))

	case "/day":
		if len(args) != 3 {
			return "Usage: /day <weekday> <open> <close>"
		}
		day, err := input.Weekday(args[0])
		if err != nil {
			return err.Error()
		}
		hours, err := input.WorkHours(args[1], args[2])
		if err != nil {
			return err.Error()
		}
		return daysOutcome(b.service.SetWeekdayHours(ctx, day, hours))

	case "/date":
		if len(args) != 3 {
			return "Usage: /date <yyyy-MM-dd> <open> <close>"
		}
		date, err := input.Date(args[0])
		if err != nil {
			return err.Error()
		}
		hours, err := input.WorkHours(args[1], args[2])
		if err != nil {
			return err.Error()
		}
		_, ok := b.service.SetDateHours(ctx, date, hours)
		return datesOutcome(ok)

	case "/closedays":
		if len(args) == 0 {
			return "Usage: /closedays <weekday,...>"
		}
		days, err := input.Weekdays(strings.Join(args, ""))
		if err != nil {
			return err.Error()
		}
		return daysOutcome(b.service.SetWeekHours(ctx, model.Closed(), days))

	case "/closedates":
		if len(args) == 0 {
			return "Usage: /closedates <yyyy-MM-dd,...>"
		}
		dates, err := input.Dates(strings.Join(args, ""))
		if err != nil {
			return err.Error()
		}
		return datesOutcome(b.service.SetDatesHours(ctx, dates, model.Closed()))
	}
	return ""
}

func daysOutcome(ok bool) string {
	if ok {
		return "Days schedule updated successfully."
	}
	return "Days cannot be scheduled."
}

func datesOutcome(ok bool) string {
	if ok {
		return "Dates added successfully."
	}
	return "Dates cannot be scheduled."
}

func formatSchedule(snap schedule.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("Weekly hours:\n")
	for _, day := range schedule.Weekdays {
		fmt.Fprintf(&sb, "%s: %s\n", day, snap.Week[day])
	}
	if len(snap.Dates) > 0 {
		sb.WriteString("\nSpecial dates:\n")
		for _, d := range snap.Dates {
			fmt.Fprintf(&sb, "%s (%s): %s\n", d.Date, d.Date.Weekday(), d.Hours)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
