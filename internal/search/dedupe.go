package search

import (
	"sort"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

// DedupeSeeds sorts by (score desc, message_date desc) and greedily keeps a
// seed only when it is not within idGap message-ids or timeGapMs
// milliseconds of an already-accepted seed in the same chat. Falls back to
// the single best seed if every other seed would otherwise be dropped.
func DedupeSeeds(seeds []types.Seed, idGap int64, timeGapMs int64) []types.Seed {
	if len(seeds) == 0 {
		return nil
	}

	sorted := append([]types.Seed(nil), seeds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return dateOf(sorted[i]) > dateOf(sorted[j])
	})

	var accepted []types.Seed
	for _, seed := range sorted {
		if !clashesWithAccepted(seed, accepted, idGap, timeGapMs) {
			accepted = append(accepted, seed)
		}
	}

	if len(accepted) == 0 {
		return []types.Seed{sorted[0]}
	}
	return accepted
}

func dateOf(s types.Seed) int64 {
	if s.MessageDateMs != nil {
		return *s.MessageDateMs
	}
	return 0
}

func clashesWithAccepted(seed types.Seed, accepted []types.Seed, idGap, timeGapMs int64) bool {
	for _, a := range accepted {
		if a.ChatID != seed.ChatID {
			continue
		}
		if abs64(a.MessageID-seed.MessageID) <= idGap {
			return true
		}
		if seed.MessageDateMs != nil && a.MessageDateMs != nil &&
			abs64(*a.MessageDateMs-*seed.MessageDateMs) <= timeGapMs {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
