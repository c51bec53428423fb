// Package indexfeed implements C5: idempotent upsert of IndexedDocuments
// (lexical fields + dense vector) to the search engine, with bounded
// concurrency and retry.
package indexfeed

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rtyshyk/telegram-rag/internal/errors"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/metrics"
	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

// maxFeedConcurrency is the fixed per-batch concurrency bound from §5.
const maxFeedConcurrency = 5

// maxDeleteChunkIndices bounds how many chunk indices a single message
// delete will attempt, since a message's chunk count is not tracked
// separately from its chunk records.
const maxDeleteChunkIndices = 64

// Feeder wraps a vespa.Client with the C5 retry and concurrency contract.
type Feeder struct {
	client *vespa.Client
}

// NewFeeder wraps a vespa.Client as the C5 index feeder.
func NewFeeder(client *vespa.Client) *Feeder { return &Feeder{client: client} }

func documentFields(doc types.IndexedDocument) map[string]interface{} {
	fields := map[string]interface{}{
		"chunk_id":         doc.ChunkID,
		"chat_id":          doc.ChatID,
		"message_id":       doc.MessageID,
		"chunk_idx":        doc.ChunkIdx,
		"chunking_version": doc.ChunkingVersion,
		"text_hash":        doc.TextHash,
		"message_date":     doc.MessageDate,
		"has_link":         doc.HasLink,
		"text":             doc.Text,
		"bm25_text":        doc.BM25Text,
		"chat_type":        string(doc.ChatType),
	}
	if doc.EditDate != nil {
		fields["edit_date"] = *doc.EditDate
	}
	if doc.DeletedAt != nil {
		fields["deleted_at"] = *doc.DeletedAt
	}
	if doc.Sender != nil {
		fields["sender"] = *doc.Sender
	}
	if doc.SenderUsername != nil {
		fields["sender_username"] = *doc.SenderUsername
	}
	if doc.ChatUsername != nil {
		fields["chat_username"] = *doc.ChatUsername
	}
	if doc.ThreadID != nil {
		fields["thread_id"] = *doc.ThreadID
	}
	if doc.SourceTitle != nil {
		fields["source_title"] = *doc.SourceTitle
	}
	if len(doc.Vector) > 0 {
		fields[doc.Model.VectorField()] = doc.Vector
	}
	return fields
}

func (f *Feeder) feedOneWithRetry(ctx context.Context, doc types.IndexedDocument) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := 200 * time.Millisecond * time.Duration(1<<attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return errors.Cancelled(ctx.Err())
			}
		}
		_, err := f.client.Feed(ctx, doc.ChunkID, documentFields(doc))
		if err == nil {
			metrics.IndexFeedSuccess.Inc()
			return nil
		}
		lastErr = err
		var appErr *errors.AppError
		if errors.As(err, &appErr) && appErr.Kind != errors.KindTransient {
			metrics.IndexFeedFailure.Inc()
			return err
		}
		metrics.IndexFeedRetry.Inc()
	}
	metrics.IndexFeedFailure.Inc()
	return lastErr
}

// FeedDocuments upserts every document with a bounded concurrency of 5. A
// single document's permanent failure does not abort the batch: errgroup's
// own WithContext would cancel every sibling goroutine on the first error,
// so a plain Group is used here with the caller's ctx passed through
// unmodified — every feed runs to completion, all errors are collected and
// logged, and the first one is returned.
func (f *Feeder) FeedDocuments(ctx context.Context, docs []types.IndexedDocument) error {
	var g errgroup.Group
	sem := make(chan struct{}, maxFeedConcurrency)

	for _, doc := range docs {
		doc := doc
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := f.feedOneWithRetry(ctx, doc); err != nil {
				logger.Warn(ctx, "index feed failed", "chunk_id", doc.ChunkID, "error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// DeleteMessageChunks deletes up to maxDeleteChunkIndices chunk_ids for a
// message; any 404 is treated as success by the vespa client. As in
// FeedDocuments, a plain Group (no WithContext) keeps one failed delete from
// cancelling its siblings.
func (f *Feeder) DeleteMessageChunks(ctx context.Context, chatID string, messageID int64, chunkingVersion int) error {
	var g errgroup.Group
	sem := make(chan struct{}, maxFeedConcurrency)

	for idx := 0; idx < maxDeleteChunkIndices; idx++ {
		idx := idx
		id := types.BuildChunkID(chatID, messageID, idx, chunkingVersion)
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			_, err := f.client.Delete(ctx, id)
			return err
		})
	}
	return g.Wait()
}
