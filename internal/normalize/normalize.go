// Package normalize implements C1: cleaning raw message text, flagging
// links, building the per-message header, and splicing in truncated reply
// context.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rtyshyk/telegram-rag/internal/chunker"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

var (
	whitespaceRun = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun  = regexp.MustCompile(`\n{3,}`)
	linkPattern   = regexp.MustCompile(`(?i)https?://\S+`)
)

// ReplyFetcher looks up the text of a referenced message, for reply splicing.
type ReplyFetcher interface {
	GetMessageText(chatID string, messageID int64) (string, bool)
}

// Options controls reply-context truncation.
type Options struct {
	ReplyContextTokenBudget int // default 80
}

func DefaultOptions() Options {
	return Options{ReplyContextTokenBudget: 80}
}

// Result is the C1 output: display text, lexical (bm25) text, link flag and
// rendered header.
type Result struct {
	DisplayText string
	BM25Text    string
	HasLink     bool
	Header      string
}

// Normalise runs C1 on one message.
func Normalise(msg types.Message, replies ReplyFetcher, opts Options) Result {
	collapsed := collapseWhitespace(msg.Text)
	hasLink := linkPattern.MatchString(collapsed)
	header := BuildHeader(msg)

	display := collapsed
	if msg.ReplyToMsgID != nil && replies != nil {
		if replyText, ok := replies.GetMessageText(msg.ChatID, *msg.ReplyToMsgID); ok && strings.TrimSpace(replyText) != "" {
			truncated := truncateAtWordBoundary(collapseWhitespace(replyText), opts.ReplyContextTokenBudget)
			display = truncated + " — " + collapsed
		}
	}

	return Result{
		DisplayText: display,
		BM25Text:    display,
		HasLink:     hasLink,
		Header:      header,
	}
}

// collapseWhitespace collapses runs of horizontal whitespace and excessive
// blank lines while preserving URLs verbatim.
func collapseWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// BuildHeader renders "[YYYY-MM-DD HH:MM • @username | Full Name | Unknown]":
// the identity slot prefers @username, falls back to the full name, falls
// back to the literal "Unknown".
func BuildHeader(msg types.Message) string {
	t := time.Unix(msg.MessageDate, 0).UTC()
	identity := "Unknown"
	if msg.Sender != nil && strings.TrimSpace(*msg.Sender) != "" {
		identity = *msg.Sender
	}
	if msg.SenderUsername != nil && strings.TrimSpace(*msg.SenderUsername) != "" {
		identity = "@" + *msg.SenderUsername
	}
	return fmt.Sprintf("[%s • %s]", t.Format("2006-01-02 15:04"), identity)
}

// truncateAtWordBoundary hard-truncates s to at most budget tokens, cutting
// at the nearest preceding word boundary.
func truncateAtWordBoundary(s string, budget int) string {
	toks := chunker.Encode(s)
	if len(toks) <= budget {
		return s
	}
	truncated := chunker.Decode(toks[:budget])
	if idx := strings.LastIndexAny(truncated, " \n"); idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
