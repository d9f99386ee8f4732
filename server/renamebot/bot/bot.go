package bot

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	commonlog "renamer/server/common/log"
	"renamer/server/renamebot/service"
)

const (
	textStart      = "👋 <b>Renamer Bot Ready!</b>"
	textPrompt     = "📂 <code>%s</code>\n👇 <b>Type New Name:</b>"
	textProcessing = "⚡️ <b>Processing...</b>"
	textRenamed    = "✅ <b>Renamed!</b>\n📥 <code>%s</code>"
	textFailed     = "❌ Error: %s"
	textNoPending  = "⚠️ No pending file. Send a document, video or audio first."
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Renamer interface {
	Rename(ctx context.Context, req service.RenameRequest) (service.RenameResult, error)
}

type Bot struct {
	api        botAPI
	ownerID    int64
	sessions   SessionStore
	renamer    Renamer
	sessionTTL time.Duration

	wg sync.WaitGroup
}

func New(api botAPI, ownerID int64, sessions SessionStore, renamer Renamer, sessionTTL time.Duration) *Bot {
	return &Bot{api: api, ownerID: ownerID, sessions: sessions, renamer: renamer, sessionTTL: sessionTTL}
}

// Run handles updates until ctx is done or the channel closes, then waits for
// in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.Handle(ctx, update)
			}()
		}
	}
}

func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if msg.From.ID != b.ownerID || !msg.Chat.IsPrivate() {
		updatesTotal.WithLabelValues("ignored").Inc()
		return
	}

	switch {
	case msg.IsCommand():
		updatesTotal.WithLabelValues("command").Inc()
		if msg.Command() == "start" {
			b.reply(msg, textStart, false)
		}
	case hasMedia(msg):
		updatesTotal.WithLabelValues("media").Inc()
		b.handleFile(ctx, msg)
	case msg.Text != "":
		updatesTotal.WithLabelValues("text").Inc()
		b.handleRename(ctx, msg)
	}
}

func hasMedia(msg *tgbotapi.Message) bool {
	_, ok := mediaOf(msg)
	return ok
}

func (b *Bot) handleFile(ctx context.Context, msg *tgbotapi.Message) {
	media, _ := mediaOf(msg)
	name := displayName(media)

	prompt, err := b.reply(msg, fmt.Sprintf(textPrompt, html.EscapeString(name)), true)
	if err != nil {
		return
	}
	sess := Session{
		OwnerID:   msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Kind:      media.Kind(),
		FileName:  name,
		FileSize:  media.Size(),
		PromptID:  prompt.MessageID,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.sessions.Put(ctx, sess, b.sessionTTL); err != nil {
		commonlog.Errorf("store rename session owner=%d: %v", sess.OwnerID, err)
	}
}

func (b *Bot) handleRename(ctx context.Context, msg *tgbotapi.Message) {
	// always consume the pending session so a stale one cannot be reused
	sess, found, err := b.sessions.Take(ctx, msg.From.ID)
	if err != nil {
		commonlog.Errorf("load rename session owner=%d: %v", msg.From.ID, err)
	}

	req, ok := b.sourceFor(msg, sess, found)
	if !ok {
		renamesTotal.WithLabelValues("no_pending").Inc()
		b.reply(msg, textNoPending, false)
		return
	}
	name, err := NormalizeName(msg.Text)
	if err != nil {
		renamesTotal.WithLabelValues("bad_name").Inc()
		b.reply(msg, fmt.Sprintf(textFailed, html.EscapeString(err.Error())), false)
		return
	}
	req.NewName = name

	status, err := b.reply(msg, textProcessing, false)
	if err != nil {
		return
	}
	res, err := b.renamer.Rename(ctx, req)
	if err != nil {
		renamesTotal.WithLabelValues("failed").Inc()
		commonlog.Errorf("rename message=%d: %v", req.MessageID, err)
		b.edit(status, fmt.Sprintf(textFailed, html.EscapeString(err.Error())))
		return
	}
	renamesTotal.WithLabelValues("renamed").Inc()
	b.edit(status, fmt.Sprintf(textRenamed, html.EscapeString(res.Link)))
}

// sourceFor prefers media on the replied-to message over the pending session.
func (b *Bot) sourceFor(msg *tgbotapi.Message, sess Session, found bool) (service.RenameRequest, bool) {
	if media, ok := mediaOf(msg.ReplyToMessage); ok {
		return service.RenameRequest{
			FromChatID:   msg.Chat.ID,
			MessageID:    msg.ReplyToMessage.MessageID,
			Kind:         media.Kind(),
			DeclaredSize: media.Size(),
		}, true
	}
	if !found {
		return service.RenameRequest{}, false
	}
	return service.RenameRequest{
		FromChatID:   sess.ChatID,
		MessageID:    sess.MessageID,
		Kind:         sess.Kind,
		DeclaredSize: sess.FileSize,
	}, true
}

func (b *Bot) reply(to *tgbotapi.Message, text string, forceReply bool) (tgbotapi.Message, error) {
	out := tgbotapi.NewMessage(to.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyToMessageID = to.MessageID
	if forceReply {
		out.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	}
	sent, err := b.api.Send(out)
	if err != nil {
		commonlog.Errorf("send message chat=%d: %v", to.Chat.ID, err)
	}
	return sent, err
}

func (b *Bot) edit(status tgbotapi.Message, text string) {
	if status.Chat == nil {
		return
	}
	edit := tgbotapi.NewEditMessageText(status.Chat.ID, status.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		commonlog.Errorf("edit message chat=%d id=%d: %v", status.Chat.ID, status.MessageID, err)
	}
}
