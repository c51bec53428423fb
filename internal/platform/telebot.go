package platform

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/rtyshyk/telegram-rag/internal/errors"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// TelebotPlatform delivers live messages via the Telegram Bot API using
// long polling. The Bot API only pushes updates for chats the bot has been
// added to and cannot enumerate a user's dialog list or page through
// history predating the bot's membership; ResolveChats/ListAllChats/
// FetchHistory degrade to the bot's own update cache accordingly (see
// DESIGN.md for why no richer Telegram client ships in this stack).
type TelebotPlatform struct {
	bot     *tele.Bot
	handler func(types.Message)
	seen    map[string]map[int64]types.Message

	mu          sync.Mutex
	lastUpdate  time.Time
	started     bool
}

// connectionStaleAfter is how long without a received message update (or
// since Start) before IsConnected reports false.
const connectionStaleAfter = 3 * time.Minute

// NewTelebotPlatform builds a bot client polling every pollInterval.
func NewTelebotPlatform(token string, pollInterval time.Duration) (*TelebotPlatform, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollInterval},
	})
	if err != nil {
		return nil, errors.Permanent("telegram_bot_init_failed", "failed to initialise telegram bot", err)
	}
	p := &TelebotPlatform{bot: bot, seen: make(map[string]map[int64]types.Message)}
	bot.Handle(tele.OnText, p.onUpdate)
	bot.Handle(tele.OnEdited, p.onUpdate)
	return p, nil
}

func (p *TelebotPlatform) OnMessage(handler func(types.Message)) { p.handler = handler }

func chatTypeFromTelebot(ct tele.ChatType) types.ChatType {
	switch ct {
	case tele.ChatPrivate:
		return types.ChatTypePrivate
	case tele.ChatGroup, tele.ChatSuperGroup:
		return types.ChatTypeGroup
	case tele.ChatChannel, tele.ChatChannelPrivate:
		return types.ChatTypeChannel
	default:
		return types.ChatTypeUnknown
	}
}

func messageFromTelebot(m *tele.Message) types.Message {
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	out := types.Message{
		ChatID:      chatID,
		MessageID:   int64(m.ID),
		MessageDate: m.Unixtime,
		ChatType:    chatTypeFromTelebot(m.Chat.Type),
		Text:        m.Text,
	}
	if m.LastEdit > 0 {
		edit := m.LastEdit
		out.EditDate = &edit
	}
	if m.Sender != nil {
		name := m.Sender.FirstName
		if m.Sender.LastName != "" {
			name = name + " " + m.Sender.LastName
		}
		out.Sender = &name
		if m.Sender.Username != "" {
			out.SenderUsername = &m.Sender.Username
		}
	}
	if m.Chat.Username != "" {
		out.ChatUsername = &m.Chat.Username
	}
	if m.Chat.Title != "" {
		out.SourceTitle = &m.Chat.Title
	}
	if m.ThreadID != 0 {
		threadID := int64(m.ThreadID)
		out.ThreadID = &threadID
	}
	if m.ReplyTo != nil {
		replyID := int64(m.ReplyTo.ID)
		out.ReplyToMsgID = &replyID
	}
	return out
}

func (p *TelebotPlatform) onUpdate(c tele.Context) error {
	msg := messageFromTelebot(c.Message())
	p.mu.Lock()
	if p.seen[msg.ChatID] == nil {
		p.seen[msg.ChatID] = make(map[int64]types.Message)
	}
	p.seen[msg.ChatID][msg.MessageID] = msg
	p.lastUpdate = time.Now()
	p.mu.Unlock()
	if p.handler != nil {
		p.handler(msg)
	}
	return nil
}

func (p *TelebotPlatform) Start(ctx context.Context) error {
	p.mu.Lock()
	p.started = true
	p.lastUpdate = time.Now()
	p.mu.Unlock()
	go p.bot.Start()
	<-ctx.Done()
	p.bot.Stop()
	return nil
}

// IsConnected reports true once Start has run and a message update was
// received (or Start ran) within connectionStaleAfter; the long-poller has no explicit
// connected/disconnected event, so liveness is inferred from update
// recency.
func (p *TelebotPlatform) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && time.Since(p.lastUpdate) < connectionStaleAfter
}

func (p *TelebotPlatform) Stop() error {
	p.bot.Stop()
	return nil
}

// ResolveChats resolves numeric chat ids directly; named chats can only be
// resolved once the bot has observed at least one message from them.
func (p *TelebotPlatform) ResolveChats(ctx context.Context, names []string) (map[string]ChatInfo, error) {
	out := make(map[string]ChatInfo, len(names))
	for _, name := range names {
		id, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return nil, errors.Permanent("telegram_resolve_unsupported", fmt.Sprintf("bot API cannot resolve chat name %q without a prior message", name), nil)
		}
		chat, err := p.bot.ChatByID(id)
		if err != nil {
			return nil, errors.Transient("telegram_resolve_failed", "failed to resolve chat by id", err)
		}
		info := ChatInfo{ID: name, Title: chat.Title, Type: chatTypeFromTelebot(chat.Type)}
		if chat.Username != "" {
			info.Username = &chat.Username
		}
		out[name] = info
	}
	return out, nil
}

// ListAllChats returns every chat the bot has observed a message from since
// process start; the Bot API has no dialog-listing endpoint.
func (p *TelebotPlatform) ListAllChats(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(p.seen))
	for chatID := range p.seen {
		out = append(out, chatID)
	}
	return out, nil
}

// FetchHistory returns messages observed since process start; the Bot API
// exposes no history endpoint, so backfill beyond the bot's own uptime is
// out of reach without a user-account client this stack does not carry.
func (p *TelebotPlatform) FetchHistory(ctx context.Context, chatID string, afterMessageID int64, limit int) ([]types.Message, error) {
	byID, ok := p.seen[chatID]
	if !ok {
		return nil, nil
	}
	var out []types.Message
	for id, msg := range byID {
		if id > afterMessageID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *TelebotPlatform) GetMessage(ctx context.Context, chatID string, messageID int64) (types.Message, bool, error) {
	byID, ok := p.seen[chatID]
	if !ok {
		return types.Message{}, false, nil
	}
	msg, ok := byID[messageID]
	return msg, ok, nil
}
