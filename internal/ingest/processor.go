// Package ingest implements the C6 coordinator: one-shot and daemon modes
// that drive messages from a platform.ChatPlatform through normalisation,
// chunking, embedding and index feeding, on top of an asynq work queue.
package ingest

import (
	"context"

	"github.com/rtyshyk/telegram-rag/internal/chunker"
	"github.com/rtyshyk/telegram-rag/internal/embedding"
	"github.com/rtyshyk/telegram-rag/internal/indexfeed"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/metrics"
	"github.com/rtyshyk/telegram-rag/internal/normalize"
	"github.com/rtyshyk/telegram-rag/internal/platform"
	"github.com/rtyshyk/telegram-rag/internal/store"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// replyFetcher adapts a platform.ChatPlatform to normalize.ReplyFetcher,
// fetching the referenced message synchronously on demand.
type replyFetcher struct {
	ctx      context.Context
	platform platform.ChatPlatform
	chatID   string
}

func (f replyFetcher) GetMessageText(chatID string, messageID int64) (string, bool) {
	msg, ok, err := f.platform.GetMessage(f.ctx, chatID, messageID)
	if err != nil || !ok {
		return "", false
	}
	return msg.Text, true
}

// ProcessorConfig bundles the tunables §4.6 and C2/C4 need.
type ProcessorConfig struct {
	ChunkingVersion   int
	PreprocessVersion int
	EmbedModel        types.EmbeddingModel
	DryRun            bool
}

// Processor runs the per-message pipeline in §4.6, shared by every activity
// that discovers messages: one-shot iteration, live tailing, look-back and
// sweep.
type Processor struct {
	cfg      ProcessorConfig
	repo     *store.Repository
	cache    *embedding.Cache
	embedder *embedding.Service
	feeder   *indexfeed.Feeder
	platform platform.ChatPlatform
}

// NewProcessor wires every collaborator the per-message pipeline needs.
func NewProcessor(cfg ProcessorConfig, repo *store.Repository, cache *embedding.Cache, embedder *embedding.Service, feeder *indexfeed.Feeder, plat platform.ChatPlatform) *Processor {
	return &Processor{cfg: cfg, repo: repo, cache: cache, embedder: embedder, feeder: feeder, platform: plat}
}

// ProcessMessage runs §4.6 end to end for one message. isEdit only affects
// logging; the skip-if-unchanged check is driven by comparing edit_date to
// the stored chunk records regardless of how the message was discovered.
func (p *Processor) ProcessMessage(ctx context.Context, msg types.Message, isEdit bool) error {
	existing, err := p.repo.GetExistingChunks(ctx, msg.ChatID, msg.MessageID)
	if err != nil {
		return err
	}
	if len(existing) > 0 && !editAdvanced(existing, msg.EditDate) {
		return nil
	}

	norm := normalize.Normalise(msg, replyFetcher{ctx: ctx, platform: p.platform, chatID: msg.ChatID}, normalize.DefaultOptions())

	pieces, err := chunker.Split(norm.DisplayText, norm.Header, chunker.Options{})
	if err != nil {
		logger.Warn(ctx, "chunking produced no pieces", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		return nil
	}

	chunks := make([]types.Chunk, 0, len(pieces))
	for idx, piece := range pieces {
		hash := embedding.TextHash(piece.FullText, string(p.cfg.EmbedModel), p.cfg.ChunkingVersion, p.cfg.PreprocessVersion, "")
		chunks = append(chunks, types.Chunk{
			ChunkID:         types.BuildChunkID(msg.ChatID, msg.MessageID, idx, p.cfg.ChunkingVersion),
			ChatID:          msg.ChatID,
			MessageID:       msg.MessageID,
			ChunkIdx:        idx,
			ChunkingVersion: p.cfg.ChunkingVersion,
			TextHash:        hash,
			FullText:        piece.FullText,
			LexicalText:     piece.LexicalText,
			MessageDate:     msg.MessageDate,
			EditDate:        msg.EditDate,
			Sender:          msg.Sender,
			SenderUsername:  msg.SenderUsername,
			ChatUsername:    msg.ChatUsername,
			ChatType:        msg.ChatType,
			ThreadID:        msg.ThreadID,
			SourceTitle:     msg.SourceTitle,
			HasLink:         norm.HasLink,
		})
	}

	hashes := make([]string, len(chunks))
	for i, c := range chunks {
		hashes[i] = c.TextHash
	}
	probe, err := p.cache.Probe(ctx, hashes)
	if err != nil {
		return err
	}
	metrics.EmbeddingCacheHits.Add(float64(len(probe.Hits)))

	vectors := map[string][]float32{}
	for hash, entry := range probe.Hits {
		vectors[hash] = entry.Vector
	}
	if len(probe.Misses) > 0 {
		inputs := make([]embedding.TextInput, 0, len(probe.Misses))
		byHash := map[string]string{}
		for _, c := range chunks {
			byHash[c.TextHash] = c.LexicalText
		}
		for _, hash := range probe.Misses {
			inputs = append(inputs, embedding.TextInput{TextHash: hash, Text: byHash[hash]})
		}
		fresh, err := p.embedder.EmbedMisses(ctx, inputs)
		if err != nil {
			return err
		}
		metrics.EmbeddingAPICalls.Inc()
		for _, entry := range fresh {
			vectors[entry.TextHash] = entry.Vector
		}
	}

	docs := make([]types.IndexedDocument, 0, len(chunks))
	for _, c := range chunks {
		doc := types.FromChunk(c)
		doc.Model = p.cfg.EmbedModel
		doc.Vector = vectors[c.TextHash]
		docs = append(docs, doc)
	}

	if p.cfg.DryRun {
		logger.Info(ctx, "dry-run: would index", "chat_id", msg.ChatID, "message_id", msg.MessageID, "chunks", len(docs), "is_edit", isEdit)
		return nil
	}

	if err := p.repo.UpsertChunks(ctx, chunks); err != nil {
		return err
	}
	if err := p.feeder.FeedDocuments(ctx, docs); err != nil {
		logger.Warn(ctx, "index feed failed for message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
	}
	metrics.MessagesProcessed.Inc()
	return nil
}

// editAdvanced reports whether msg's edit timestamp is newer than at least
// one stored chunk's (or some stored chunk has none), meaning the message
// must be reprocessed.
func editAdvanced(existing []store.ChunkRecord, editDate *int64) bool {
	if editDate == nil {
		return false
	}
	for _, c := range existing {
		if c.EditDate == nil || *c.EditDate < *editDate {
			return true
		}
	}
	return false
}
