package service

import (
	"context"
	"strconv"
	"strings"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
	usermodels "storefront-bot-backend/internal/features/user/models"
	userservice "storefront-bot-backend/internal/features/user/service"
	"storefront-bot-backend/internal/platform/telegram"
)

const (
	CommandStart = "/start"

	MsgGenericFailure = "Error. Please try again!"
)

// MessageSender is the part of the Bot API client used for replies.
type MessageSender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
}

type BotService interface {
	// ProcessUpdate reacts to one webhook update. Updates without a command
	// the bot knows are ignored.
	ProcessUpdate(ctx context.Context, update *telegram.Update) error
}

type botService struct {
	users       userservice.UserService
	sender      MessageSender
	botUsername string
}

// NewBotService creates the update dispatcher. botUsername is used to tell
// "/start@this_bot" from commands addressed to other bots in groups; empty
// accepts any suffix.
func NewBotService(users userservice.UserService, sender MessageSender, botUsername string) BotService {
	return &botService{
		users:       users,
		sender:      sender,
		botUsername: botUsername,
	}
}

func (s *botService) ProcessUpdate(ctx context.Context, update *telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		logger.Debug().Int64("update_id", update.UpdateID).Msg("Update skipped")
		return nil
	}

	switch s.command(msg.Text) {
	case CommandStart:
		return s.handleStart(ctx, msg)
	default:
		return nil
	}
}

// command returns the first token of text with a matching @botname stripped,
// or "" if text is not a command for this bot.
func (s *botService) command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}

	cmd, target, found := strings.Cut(fields[0], "@")
	if found && s.botUsername != "" && !strings.EqualFold(target, s.botUsername) {
		return ""
	}
	return cmd
}

func (s *botService) handleStart(ctx context.Context, msg *telegram.Message) error {
	from := msg.From
	in := usermodels.OnboardInput{
		UserID:       strconv.FormatInt(from.ID, 10),
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		Username:     from.Username,
		LanguageCode: from.LanguageCode,
		IsPremium:    from.IsPremium,
		CommandText:  msg.Text,
	}

	welcome, err := s.users.Onboard(ctx, in)
	if err != nil {
		logger.Error().
			Err(err).
			Int64("user_id", from.ID).
			Str("text", msg.Text).
			Msg("Failed to onboard user")
		return s.reply(ctx, msg, telegram.SendMessageParams{Text: MsgGenericFailure})
	}

	return s.reply(ctx, msg, telegram.SendMessageParams{
		Text:        welcome.Text,
		ReplyMarkup: telegram.WebAppKeyboard(welcome.ButtonText, welcome.ButtonURL),
	})
}

func (s *botService) reply(ctx context.Context, to *telegram.Message, params telegram.SendMessageParams) error {
	params.ChatID = to.Chat.ID
	params.ReplyParameters = &telegram.ReplyParameters{MessageID: to.MessageID}

	if _, err := s.sender.SendMessage(ctx, params); err != nil {
		return apperrors.NewTelegramAPIError("sendMessage", err).WithDetail("chat_id", to.Chat.ID)
	}
	return nil
}
