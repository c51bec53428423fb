package search

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

// neighborMessage is the subset of a Vespa document needed to assemble a
// candidate window.
type neighborMessage struct {
	MessageID      int64
	MessageDateMs  *int64 // epoch milliseconds, see types.Seed.MessageDateMs
	Text           string
	SourceTitle    *string
	SenderUsername *string
	ChatType       types.ChatType
}

// ExpandOptions controls C9's window growth and size capping.
type ExpandOptions struct {
	MessageWindow     int64
	TimeWindowMinutes int
	MinMessages       int
	MaxMessages       int
	TokenLimit        int
	ThreadID          *int64
}

// Expander wraps a vespa client to run C9 context expansion.
type Expander struct {
	client *vespa.Client
}

// NewExpander wires a search engine client for neighbour queries.
func NewExpander(client *vespa.Client) *Expander { return &Expander{client: client} }

func parseNeighborFields(fields map[string]interface{}) (neighborMessage, bool) {
	messageID, ok := parseInt64(fields["message_id"])
	if !ok {
		return neighborMessage{}, false
	}
	m := neighborMessage{MessageID: messageID, Text: stringField(fields["text"])}
	if dateSec, ok := parseInt64(fields["message_date"]); ok {
		dateMs := dateSec * 1000
		m.MessageDateMs = &dateMs
	}
	if title := stringField(fields["source_title"]); title != "" {
		m.SourceTitle = &title
	}
	if sender := stringField(fields["sender_username"]); sender != "" {
		m.SenderUsername = &sender
	}
	if ct := stringField(fields["chat_type"]); ct != "" {
		m.ChatType = types.ChatType(ct)
	}
	return m, true
}

func (e *Expander) fetchWindow(ctx context.Context, chatID string, lo, hi int64, threadID *int64) ([]neighborMessage, error) {
	body := vespa.BuildNeighborQuery(chatID, lo, hi, threadID)
	resp, err := e.client.Query(ctx, body)
	if err != nil {
		return nil, err
	}
	out := make([]neighborMessage, 0, len(resp.Root.Children))
	for _, child := range resp.Root.Children {
		if m, ok := parseNeighborFields(child.Fields); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (e *Expander) fetchTimeWindow(ctx context.Context, chatID string, startMs, endMs int64, threadID *int64) ([]neighborMessage, error) {
	body := vespa.BuildTimeWindowQuery(chatID, startMs, endMs, threadID)
	resp, err := e.client.Query(ctx, body)
	if err != nil {
		return nil, err
	}
	out := make([]neighborMessage, 0, len(resp.Root.Children))
	for _, child := range resp.Root.Children {
		if m, ok := parseNeighborFields(child.Fields); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func mergeByMessageID(sets ...[]neighborMessage) []neighborMessage {
	byID := make(map[int64]neighborMessage)
	for _, set := range sets {
		for _, m := range set {
			existing, ok := byID[m.MessageID]
			if !ok || (existing.Text == "" && m.Text != "") {
				byID[m.MessageID] = m
			}
		}
	}
	out := make([]neighborMessage, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	return out
}

// ExpandOne grows one seed into a CandidateSnippet, returning an error only
// on a query failure; the caller drops the candidate and continues.
func (e *Expander) ExpandOne(ctx context.Context, seed types.Seed, opts ExpandOptions) (types.CandidateSnippet, error) {
	lo := seed.MessageID - opts.MessageWindow
	hi := seed.MessageID + opts.MessageWindow
	idWindow, err := e.fetchWindow(ctx, seed.ChatID, lo, hi, opts.ThreadID)
	if err != nil {
		return types.CandidateSnippet{}, err
	}

	messages := idWindow
	if len(messages) < opts.MinMessages && seed.MessageDateMs != nil {
		span := int64(opts.TimeWindowMinutes) * 60 * 1000
		timeWindow, err := e.fetchTimeWindow(ctx, seed.ChatID, *seed.MessageDateMs-span, *seed.MessageDateMs+span, opts.ThreadID)
		if err != nil {
			logger.Warn(ctx, "time-window expansion failed, using id-window only", "chat_id", seed.ChatID, "seed_id", seed.MessageID, "error", err)
		} else {
			messages = mergeByMessageID(idWindow, timeWindow)
		}
	}

	seedPresent := false
	for _, m := range messages {
		if m.MessageID == seed.MessageID {
			seedPresent = true
			break
		}
	}
	if !seedPresent {
		synthesized := neighborMessage{MessageID: seed.MessageID, MessageDateMs: seed.MessageDateMs, Text: seed.Text}
		messages = append(messages, synthesized)
	}

	filtered := messages[:0:0]
	for _, m := range messages {
		if strings.TrimSpace(m.Text) != "" {
			filtered = append(filtered, m)
		}
	}
	messages = filtered

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].MessageID != messages[j].MessageID {
			return messages[i].MessageID < messages[j].MessageID
		}
		return dateMsOf(messages[i]) < dateMsOf(messages[j])
	})

	messages = centerOnSeed(messages, seed.MessageID, opts.MaxMessages)
	messages = capByTokenBudget(messages, seed.MessageID, opts.TokenLimit*4)

	if len(messages) == 0 {
		messages = []neighborMessage{{MessageID: seed.MessageID, MessageDateMs: seed.MessageDateMs, Text: seed.Text}}
	}

	return buildCandidate(seed, messages), nil
}

func dateMsOf(m neighborMessage) int64 {
	if m.MessageDateMs != nil {
		return *m.MessageDateMs
	}
	return 0
}

func centerOnSeed(messages []neighborMessage, seedID int64, maxMessages int) []neighborMessage {
	if maxMessages <= 0 || len(messages) <= maxMessages {
		return messages
	}
	seedIdx := 0
	for i, m := range messages {
		if m.MessageID == seedID {
			seedIdx = i
			break
		}
	}
	start := seedIdx - maxMessages/2
	if start < 0 {
		start = 0
	}
	end := start + maxMessages
	if end > len(messages) {
		end = len(messages)
		start = end - maxMessages
		if start < 0 {
			start = 0
		}
	}
	return messages[start:end]
}

// capByTokenBudget drops the message furthest (by message-id distance) from
// the seed while the rendered text exceeds maxChars and at least two
// messages remain; it never drops the seed itself.
func capByTokenBudget(messages []neighborMessage, seedID int64, maxChars int) []neighborMessage {
	if maxChars <= 0 {
		return messages
	}
	for renderedLen(messages) > maxChars && len(messages) >= 2 {
		farthest := 0
		farthestDist := int64(-1)
		for i, m := range messages {
			if m.MessageID == seedID {
				continue
			}
			d := abs64(m.MessageID - seedID)
			if d > farthestDist {
				farthestDist = d
				farthest = i
			}
		}
		messages = append(messages[:farthest], messages[farthest+1:]...)
	}
	return messages
}

func renderedLen(messages []neighborMessage) int {
	var n int
	for _, m := range messages {
		n += len(strings.TrimSpace(m.Text)) + 1
	}
	return n
}

// buildCandidate renders the seed's own line first, then the rest of the
// window in ascending (message_id, timestamp) order, satisfying the
// invariant that every candidate's text starts with the message that
// surfaced it regardless of where that message falls in the id window.
func buildCandidate(seed types.Seed, messages []neighborMessage) types.CandidateSnippet {
	var seedLine string
	rest := make([]neighborMessage, 0, len(messages)-1)
	for _, m := range messages {
		if m.MessageID == seed.MessageID {
			seedLine = strings.TrimSpace(m.Text)
			continue
		}
		rest = append(rest, m)
	}

	lines := []string{seedLine}
	for _, m := range rest {
		lines = append(lines, strings.TrimSpace(m.Text))
	}

	first, last := messages[0], messages[len(messages)-1]
	span := types.Span{StartID: first.MessageID, EndID: last.MessageID, StartTS: first.MessageDateMs, EndTS: last.MessageDateMs}

	cand := types.CandidateSnippet{
		ChatID:         seed.ChatID,
		SeedMessageID:  seed.MessageID,
		Span:           span,
		Text:           strings.Join(lines, "\n"),
		MessageCount:   len(messages),
		SeedScore:      seed.Score,
		RetrievalScore: seed.Score,
	}
	for _, m := range messages {
		if m.SourceTitle != nil && cand.SourceTitle == nil {
			cand.SourceTitle = m.SourceTitle
		}
		if m.SenderUsername != nil && cand.SenderUsername == nil {
			cand.SenderUsername = m.SenderUsername
		}
		if m.ChatType != "" && cand.ChatType == "" {
			cand.ChatType = m.ChatType
		}
	}
	return cand
}

// ExpandAll fans out ExpandOne over every seed concurrently via an
// unbounded errgroup (seeds are already capped by dedupe + seed limit).
// Per-seed failures are logged and dropped; they never fail the batch.
func (e *Expander) ExpandAll(ctx context.Context, seeds []types.Seed, opts ExpandOptions) []types.CandidateSnippet {
	results := make([]*types.CandidateSnippet, len(seeds))
	g, gctx := errgroup.WithContext(ctx)

	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			cand, err := e.ExpandOne(gctx, seed, opts)
			if err != nil {
				logger.Warn(gctx, "context expansion failed, dropping candidate", "chat_id", seed.ChatID, "seed_id", seed.MessageID, "error", err)
				return nil
			}
			results[i] = &cand
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.CandidateSnippet, 0, len(seeds))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
