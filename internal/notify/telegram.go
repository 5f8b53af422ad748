package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatResolver maps a host user id to a Telegram chat id. Users without a
// linked chat are silently skipped.
type ChatResolver func(userID uint) (int64, bool)

// TelegramNotifier delivers moderation notices as Telegram direct messages.
type TelegramNotifier struct {
	Bot     *tgbotapi.BotAPI
	Resolve ChatResolver
}

func NewTelegramNotifier(token string, resolve ChatResolver) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Printf("Telegram notifier authorized as @%s", bot.Self.UserName)
	return &TelegramNotifier{Bot: bot, Resolve: resolve}, nil
}

// Notify sends one notice. Unknown templates fall back to a generic line so
// a template mismatch never drops a notification silently.
func (n *TelegramNotifier) Notify(userID uint, template string, msgContext map[string]interface{}) error {
	chatID, ok := n.Resolve(userID)
	if !ok {
		log.Printf("No Telegram chat linked for user %d, skipping %s notice", userID, template)
		return nil
	}

	text := renderNotice(template, msgContext)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.Bot.Send(msg); err != nil {
		return err
	}
	return nil
}

func renderNotice(template string, msgContext map[string]interface{}) string {
	var text string
	switch template {
	case "issue_rejected":
		text = "Your submitted issue was not approved by a moderator."
		if summary, ok := msgContext["summary"].(string); ok && summary != "" {
			text += fmt.Sprintf("\n*Summary:* %s", summary)
		}
	case "note_rejected":
		text = "Your submitted note was not approved by a moderator."
		if noteText, ok := msgContext["text"].(string); ok && noteText != "" {
			text += fmt.Sprintf("\n*Note:* %s", noteText)
		}
	case "issue_spam", "note_spam":
		text = "Your submission was flagged as spam and your account has been disabled."
	default:
		text = "Your submission was reviewed by a moderator."
	}

	if reason, ok := msgContext["reason"].(string); ok && reason != "" {
		text += fmt.Sprintf("\n*Reason:* %s", reason)
	}
	return text
}
