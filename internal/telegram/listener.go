package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"devotion-feed/internal/logging"
	"devotion-feed/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Sink stores accepted devotion broadcasts
type Sink interface {
	AddMessage(source models.Source, message string, receivedAt time.Time) (models.FeedEntry, bool, error)
}

// Listener follows the posts of the channels the bot is an administrator of
type Listener struct {
	token    string
	sink     Sink
	channels map[string]bool
}

// NewListener creates a listener accepting posts from channels, given as usernames (with or without @) or numeric chat IDs
func NewListener(cfg models.TelegramConfig, sink Sink) *Listener {
	channels := make(map[string]bool, len(cfg.Channels))
	for _, c := range cfg.Channels {
		channels[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "@"))] = true
	}
	return &Listener{
		token:    cfg.Token,
		sink:     sink,
		channels: channels,
	}
}

// Run connects the bot and consumes channel posts until ctx is cancelled
func (l *Listener) Run(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(l.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	logging.Log.Infof("Telegram bot @%s connected, following %d channel(s)", bot.Self.UserName, len(l.channels))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"channel_post"}
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			l.HandleUpdate(update)
		}
	}
}

// HandleUpdate stores the text of a post from a followed channel and reports whether it was new
func (l *Listener) HandleUpdate(update tgbotapi.Update) bool {
	post := update.ChannelPost
	if post == nil || post.Chat == nil {
		return false
	}

	locallog := logging.Log.WithField("trace_id", uuid.New().String())

	if !l.follows(post.Chat) {
		locallog.Infof("Post from unfollowed channel %q (%d), skip ...", post.Chat.UserName, post.Chat.ID)
		return false
	}

	text := post.Text
	if text == "" {
		text = post.Caption
	}
	if strings.TrimSpace(text) == "" {
		locallog.Info("Channel post without text, nothing to store")
		return false
	}

	entry, added, err := l.sink.AddMessage(models.SourceTelegram, text, time.Unix(int64(post.Date), 0))
	if err != nil {
		locallog.WithError(err).Error("Failed to store channel post")
		return false
	}
	if added {
		locallog.Infof("Stored Telegram post %d as %s", post.MessageID, entry.ID)
	}
	return added
}

func (l *Listener) follows(chat *tgbotapi.Chat) bool {
	if chat.UserName != "" && l.channels[strings.ToLower(chat.UserName)] {
		return true
	}
	return l.channels[strconv.FormatInt(chat.ID, 10)]
}
