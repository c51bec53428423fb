package vespa

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

var cyrillicPattern = regexp.MustCompile(`\p{Cyrillic}`)

// HasCyrillic reports whether s contains any Cyrillic codepoint.
func HasCyrillic(s string) bool { return cyrillicPattern.MatchString(s) }

// escapeYQLString percent-escapes single quotes for embedding inside a YQL
// string literal.
func escapeYQLString(s string) string {
	return strings.ReplaceAll(s, "'", "%27")
}

// QueryOptions configures a BuildSeedQuery call (C7).
type QueryOptions struct {
	Query        string
	Hybrid       bool
	SeedLimit    int
	Model        types.EmbeddingModel
	QueryVector  []float32
	ChatIDs      []string
	ThreadID     *int64
}

// BuildSeedQuery assembles the hybrid lexical+ANN query body for C7,
// returning the body and the ranking profile selected.
func BuildSeedQuery(opts QueryOptions) (map[string]interface{}, string) {
	var clauses []string
	clauses = append(clauses, fmt.Sprintf("bm25_text contains(\"%s\")", escapeYQLString(opts.Query)))

	profile := "default"
	if opts.Hybrid && len(opts.QueryVector) > 0 {
		field := opts.Model.VectorField()
		clauses = append(clauses, fmt.Sprintf("([targetHits:%d]nearestNeighbor(%s, qv_%s))", opts.SeedLimit, field, field))
		if opts.Model == types.EmbeddingModelLarge {
			profile = "hybrid-large"
		} else {
			profile = "hybrid-small"
		}
	}

	clauses = append(clauses, "((not hasField(deleted_at)) or (deleted_at = 0))")

	if len(opts.ChatIDs) > 0 {
		var chatClauses []string
		for _, id := range opts.ChatIDs {
			chatClauses = append(chatClauses, fmt.Sprintf("chat_id contains '%s'", escapeYQLString(id)))
		}
		clauses = append(clauses, "("+strings.Join(chatClauses, " or ")+")")
	}
	if opts.ThreadID != nil {
		clauses = append(clauses, fmt.Sprintf("thread_id = %d", *opts.ThreadID))
	}

	yql := fmt.Sprintf("select * from sources * where %s", strings.Join(clauses, " and "))

	body := map[string]interface{}{
		"yql":             yql,
		"hits":            opts.SeedLimit,
		"ranking.profile": profile,
	}
	if opts.Hybrid && len(opts.QueryVector) > 0 {
		field := opts.Model.VectorField()
		body["input.query(qv_"+field+")"] = opts.QueryVector
	}
	if HasCyrillic(opts.Query) {
		body["language"] = "uk"
	}
	return body, profile
}

// BuildNeighborQuery builds the C9 neighbour-window query: all messages in
// chatID with message_id in [lo, hi], optionally constrained to threadID.
func BuildNeighborQuery(chatID string, lo, hi int64, threadID *int64) map[string]interface{} {
	clause := fmt.Sprintf("chat_id contains '%s' and message_id >= %d and message_id <= %d",
		escapeYQLString(chatID), lo, hi)
	if threadID != nil {
		clause += fmt.Sprintf(" and thread_id = %d", *threadID)
	}
	return map[string]interface{}{
		"yql":  fmt.Sprintf("select * from sources * where %s order by message_id asc", clause),
		"hits": 400,
	}
}

// BuildTimeWindowQuery builds the fallback time-window neighbour query used
// when the id window returns too few messages.
func BuildTimeWindowQuery(chatID string, startMs, endMs int64, threadID *int64) map[string]interface{} {
	clause := fmt.Sprintf("chat_id contains '%s' and message_date >= %d and message_date <= %d",
		escapeYQLString(chatID), startMs/1000, endMs/1000)
	if threadID != nil {
		clause += fmt.Sprintf(" and thread_id = %d", *threadID)
	}
	return map[string]interface{}{
		"yql":  fmt.Sprintf("select * from sources * where %s order by message_id asc", clause),
		"hits": 400,
	}
}
