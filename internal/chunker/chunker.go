// Package chunker implements C2: a token-aware sliding-window splitter with
// overlap and boundary snapping, built on tiktoken-go's cl100k_base
// encoding so token counts here match the ones the answerer (C11) uses for
// prompt and usage estimation.
package chunker

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/rtyshyk/telegram-rag/internal/errors"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			panic("chunker: failed to load cl100k_base encoding: " + err.Error())
		}
		enc = e
	})
	return enc
}

// Encode tokenises s into cl100k_base token ids.
func Encode(s string) []int { return encoding().Encode(s, nil, nil) }

// Decode renders cl100k_base token ids back to text.
func Decode(toks []int) string { return encoding().Decode(toks) }

// CountTokens returns the cl100k_base token count of s.
func CountTokens(s string) int { return len(Encode(s)) }

// Options controls chunk sizing. Zero values fall back to the documented
// defaults (target 1000, overlap 150).
type Options struct {
	TargetTokens  int
	OverlapTokens int
}

func (o Options) withDefaults() Options {
	if o.TargetTokens <= 0 {
		o.TargetTokens = 1000
	}
	if o.OverlapTokens <= 0 {
		o.OverlapTokens = 150
	}
	return o
}

// Piece is one emitted chunk: full rendered text (header + body) and the
// lexical variant used for BM25 indexing.
type Piece struct {
	FullText    string
	LexicalText string
}

var boundaryMarkers = []string{". ", "! ", "? ", "\n\n", " "}

// Split runs C2 on text with an optional header, always prepended to every
// emitted piece. Returns ChunkingEmpty as an errors.AppError when text is
// whitespace-only.
func Split(text, header string, opts Options) ([]Piece, error) {
	opts = opts.withDefaults()

	if strings.TrimSpace(text) == "" {
		return nil, errors.Permanent("chunking_empty", "input text is whitespace-only", nil)
	}

	full := text
	if header != "" {
		full = header + "\n\n" + text
	}
	if CountTokens(full) <= opts.TargetTokens {
		return []Piece{{FullText: full, LexicalText: full}}, nil
	}

	headerTokens := 0
	if header != "" {
		headerTokens = CountTokens(header + "\n\n")
	}
	windowSize := opts.TargetTokens - headerTokens
	if windowSize <= opts.OverlapTokens {
		windowSize = opts.OverlapTokens + 1
	}
	stride := windowSize - opts.OverlapTokens
	if stride <= 0 {
		stride = windowSize
	}

	bodyTokens := Encode(text)
	var pieces []Piece
	for start := 0; start < len(bodyTokens); {
		end := start + windowSize
		isFinal := end >= len(bodyTokens)
		if end > len(bodyTokens) {
			end = len(bodyTokens)
		}

		segment := Decode(bodyTokens[start:end])
		if !isFinal {
			segment = snapToBoundary(segment)
		}

		piece := segment
		if header != "" {
			piece = header + "\n\n" + segment
		}
		pieces = append(pieces, Piece{FullText: piece, LexicalText: piece})

		if isFinal {
			break
		}
		// Advance by the token length actually consumed (after snapping),
		// net of overlap, so consecutive windows share OverlapTokens tokens.
		consumed := len(Encode(segment))
		next := start + consumed - opts.OverlapTokens
		if next <= start {
			next = start + stride
		}
		start = next
	}
	return pieces, nil
}

// snapToBoundary trims trailing tokens from a non-final chunk so it ends at
// the last sentence/paragraph/word boundary within the final 10-20% of the
// chunk, never splitting a fenced code block or URL mid-token.
func snapToBoundary(segment string) string {
	n := len(segment)
	if n == 0 {
		return segment
	}
	lo := n - n/5    // last 20%
	hi := n - n/10   // last 10%
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	search := segment[lo:hi]

	if strings.Count(segment, "```")%2 != 0 {
		// inside a fenced code block: don't snap, keep the window as-is.
		return segment
	}

	bestIdx := -1
	for _, marker := range boundaryMarkers {
		if idx := strings.LastIndex(search, marker); idx >= 0 {
			abs := lo + idx + len(marker)
			if abs > bestIdx {
				bestIdx = abs
			}
		}
	}
	if bestIdx <= 0 || bestIdx >= n {
		return segment
	}
	candidate := segment[:bestIdx]
	if strings.HasSuffix(strings.TrimRight(candidate, " "), "://") {
		return segment // would cut a URL mid-token
	}
	return candidate
}
