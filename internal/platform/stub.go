package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

// StubPlatform is a deterministic in-memory ChatPlatform used for tests and
// for TELEGRAM_STUB_MODE, mirroring the minimal fixture behaviour used by
// the original prototype's stub Telethon client.
type StubPlatform struct {
	mu        sync.Mutex
	messages  map[string][]types.Message // chatID -> messages sorted by MessageID
	chats     map[string]ChatInfo
	handler   func(types.Message)
	connected bool
}

// NewStubPlatform builds an empty stub ready for Seed calls, connected by
// default.
func NewStubPlatform() *StubPlatform {
	return &StubPlatform{
		messages:  make(map[string][]types.Message),
		chats:     make(map[string]ChatInfo),
		connected: true,
	}
}

// SetConnected lets tests simulate a disconnect/reconnect edge.
func (p *StubPlatform) SetConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
}

func (p *StubPlatform) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Seed registers a chat's fixture history and metadata, as a test helper.
func (p *StubPlatform) Seed(info ChatInfo, messages []types.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sorted := append([]types.Message(nil), messages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MessageID < sorted[j].MessageID })
	p.chats[info.ID] = info
	p.messages[info.ID] = sorted
}

// Push delivers one live message to the registered handler, appending it to
// the chat's history as if it had just arrived.
func (p *StubPlatform) Push(msg types.Message) {
	p.mu.Lock()
	p.messages[msg.ChatID] = append(p.messages[msg.ChatID], msg)
	handler := p.handler
	p.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

func (p *StubPlatform) OnMessage(handler func(types.Message)) { p.handler = handler }

func (p *StubPlatform) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (p *StubPlatform) Stop() error { return nil }

func (p *StubPlatform) ResolveChats(ctx context.Context, names []string) (map[string]ChatInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]ChatInfo, len(names))
	for _, name := range names {
		if info, ok := p.chats[name]; ok {
			out[name] = info
			continue
		}
		out[name] = ChatInfo{ID: fmt.Sprintf("stub-%s", name), Title: "Test " + name, Type: types.ChatTypeGroup}
	}
	return out, nil
}

func (p *StubPlatform) ListAllChats(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.chats))
	for id := range p.chats {
		out = append(out, id)
	}
	return out, nil
}

func (p *StubPlatform) FetchHistory(ctx context.Context, chatID string, afterMessageID int64, limit int) ([]types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.Message
	for _, m := range p.messages[chatID] {
		if m.MessageID > afterMessageID {
			out = append(out, m)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (p *StubPlatform) GetMessage(ctx context.Context, chatID string, messageID int64) (types.Message, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.messages[chatID] {
		if m.MessageID == messageID {
			return m, true, nil
		}
	}
	return types.Message{}, false, nil
}
