package telegram

import (
	"fmt"
	"log/slog"

	tb "gopkg.in/tucnak/telebot.v2"
)

// handleStart greets users opening a private chat with the bot.
func (b *Bot) handleStart(m *tb.Message) {
	if !m.Private() {
		return
	}
	if _, err := b.send(m.Sender, msgGreeting); err != nil {
		slog.Warn("greeting send failed", slog.Any("err", err))
	}
}

// handleText implements the relay. A private message from a regular user is
// forwarded to every admin with an (id=...) marker; an admin replying to one
// of those forwards routes the reply back to the original user, with carbon
// copies to the other admins.
func (b *Bot) handleText(m *tb.Message) {
	if !m.Private() || m.Sender == nil {
		return
	}
	if b.isAdmin(m.Sender) && b.isRelayReply(m) {
		b.relayAdminReply(m)
		return
	}
	if b.isAdmin(m.Sender) {
		return
	}
	b.forwardToAdmins(m)
}

func (b *Bot) isAdmin(u *tb.User) bool {
	for _, id := range b.cfg.TGAdminIDs {
		if int64(u.ID) == id {
			return true
		}
	}
	return false
}

// isRelayReply reports whether m is a reply to one of the bot's own relayed
// messages carrying an id marker.
func (b *Bot) isRelayReply(m *tb.Message) bool {
	if m.ReplyTo == nil || m.ReplyTo.Sender == nil {
		return false
	}
	if m.ReplyTo.Sender.ID != b.bot.Me.ID {
		return false
	}
	_, ok := ExtractRelayUserID(m.ReplyTo.Text)
	return ok
}

func (b *Bot) forwardToAdmins(m *tb.Message) {
	full := fullUserName(m.Sender.FirstName, m.Sender.LastName)
	text := fmt.Sprintf("Сообщение от %s (id=%d):\n%s", full, m.Sender.ID, m.Text)
	for _, adminID := range b.cfg.TGAdminIDs {
		if _, err := b.send(tb.ChatID(adminID), text); err != nil {
			slog.Warn("admin forward failed", slog.Int64("admin_id", adminID), slog.Any("err", err))
		}
	}
	if _, err := b.send(m.Sender, msgAck); err != nil {
		slog.Warn("ack send failed", slog.Any("err", err))
	}
}

func (b *Bot) relayAdminReply(m *tb.Message) {
	userID, _ := ExtractRelayUserID(m.ReplyTo.Text)
	if _, err := b.send(tb.ChatID(userID), m.Text); err != nil {
		slog.Error("relay reply failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return
	}

	full := fullUserName(m.Sender.FirstName, m.Sender.LastName)
	cc := fmt.Sprintf("Ответ от %s (tg://user?id=%d) пользователю (id=%d):\n%s",
		full, m.Sender.ID, userID, m.Text)
	for _, adminID := range b.cfg.TGAdminIDs {
		if adminID == int64(m.Sender.ID) {
			continue
		}
		if _, err := b.send(tb.ChatID(adminID), cc); err != nil {
			slog.Warn("cc send failed", slog.Int64("admin_id", adminID), slog.Any("err", err))
		}
	}
}
