package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rtyshyk/telegram-rag/internal/checkpoint"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/metrics"
	"github.com/rtyshyk/telegram-rag/internal/platform"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// DaemonConfig controls the five concurrent activities in §4.5.
type DaemonConfig struct {
	Chats                    []string
	LookbackMinutes          int
	ConnectionCheckInterval  time.Duration
	SweepInterval            time.Duration
	SweepDays                int
	LookbackMessageLimit     int
	CheckpointEvery          int
}

func (c DaemonConfig) withDefaults() DaemonConfig {
	if c.LookbackMinutes <= 0 {
		c.LookbackMinutes = 5
	}
	if c.ConnectionCheckInterval <= 0 {
		c.ConnectionCheckInterval = 60 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 60 * time.Minute
	}
	if c.SweepDays <= 0 {
		c.SweepDays = 7
	}
	if c.LookbackMessageLimit <= 0 {
		c.LookbackMessageLimit = 250
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 50
	}
	return c
}

// Daemon runs the five concurrent ingest activities (§4.5) against a single
// Queue until its context is cancelled; the Worker (queue.go) drains the
// queue independently.
type Daemon struct {
	cfg          DaemonConfig
	plat         platform.ChatPlatform
	queue        *Queue
	cp           *checkpoint.Store
	lookbackMu   sync.Mutex
	wasConnected bool
}

// NewDaemon wires the daemon's collaborators.
func NewDaemon(cfg DaemonConfig, plat platform.ChatPlatform, queue *Queue, cp *checkpoint.Store) *Daemon {
	return &Daemon{cfg: cfg.withDefaults(), plat: plat, queue: queue, cp: cp}
}

// Run starts every activity and blocks until ctx is cancelled, then waits
// for each to exit.
func (d *Daemon) Run(ctx context.Context) error {
	chatIDs, err := resolveChatSelection(ctx, d.plat, d.cfg.Chats)
	if err != nil {
		return err
	}
	chatSet := make(map[string]bool, len(chatIDs))
	for _, id := range chatIDs {
		chatSet[id] = true
	}

	d.plat.OnMessage(func(msg types.Message) {
		if !chatSet[msg.ChatID] {
			return
		}
		if err := d.queue.Enqueue(ctx, msg, msg.HasEdit()); err != nil {
			logger.Warn(ctx, "live tailing: enqueue failed", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		}
	})

	var wg sync.WaitGroup
	wg.Add(4)

	go func() { defer wg.Done(); d.runInitialBackfill(ctx, chatIDs) }()
	go func() { defer wg.Done(); d.runSweepScheduler(ctx, chatIDs) }()
	go func() { defer wg.Done(); d.runConnectionWatchdog(ctx, chatIDs) }()
	go func() { defer wg.Done(); _ = d.plat.Start(ctx) }() // live tailing: Start delivers via the OnMessage handler above

	wg.Wait()
	return nil
}

// runInitialBackfill iterates every chat from its stored checkpoint to the
// newest message, advancing the checkpoint every CheckpointEvery messages.
func (d *Daemon) runInitialBackfill(ctx context.Context, chatIDs []string) {
	for _, chatID := range chatIDs {
		if ctx.Err() != nil {
			return
		}
		after := int64(0)
		if cp, ok := d.cp.Get(chatID); ok {
			after = cp.LastMessageID
		}
		var sinceLast int
		for {
			msgs, err := d.plat.FetchHistory(ctx, chatID, after, 200)
			if err != nil {
				logger.Warn(ctx, "backfill: fetch history failed", "chat_id", chatID, "error", err)
				break
			}
			if len(msgs) == 0 {
				break
			}
			for _, msg := range msgs {
				if err := d.queue.Enqueue(ctx, msg, false); err != nil {
					logger.Warn(ctx, "backfill: enqueue failed", "chat_id", chatID, "message_id", msg.MessageID, "error", err)
					continue
				}
				after = msg.MessageID
				sinceLast++
				if sinceLast >= d.cfg.CheckpointEvery {
					if err := d.cp.Advance(chatID, after); err != nil {
						logger.Warn(ctx, "backfill: checkpoint advance failed", "chat_id", chatID, "error", err)
					}
					sinceLast = 0
				}
			}
		}
		if err := d.cp.Advance(chatID, after); err != nil {
			logger.Warn(ctx, "backfill: final checkpoint advance failed", "chat_id", chatID, "error", err)
		}
	}
}

// runLookback scans the last LookbackMinutes across every chat, serialised
// so only one look-back runs at a time (property 8).
func (d *Daemon) runLookback(ctx context.Context, chatIDs []string) {
	if !d.lookbackMu.TryLock() {
		return
	}
	defer d.lookbackMu.Unlock()

	metrics.ReconnectLookbacks.Inc()
	cutoff := time.Now().Add(-time.Duration(d.cfg.LookbackMinutes) * time.Minute).Unix()
	d.scanChatsSince(ctx, chatIDs, cutoff, d.cfg.LookbackMessageLimit)
}

// runSweepScheduler schedules the periodic sweep with cron.
func (d *Daemon) runSweepScheduler(ctx context.Context, chatIDs []string) {
	c := cron.New()
	spec := "@every " + d.cfg.SweepInterval.String()
	_, err := c.AddFunc(spec, func() {
		metrics.HourlySweeps.Inc()
		cutoff := time.Now().AddDate(0, 0, -d.cfg.SweepDays).Unix()
		d.scanChatsSince(ctx, chatIDs, cutoff, d.cfg.LookbackMessageLimit)
	})
	if err != nil {
		logger.Warn(ctx, "daemon: failed to schedule sweep", "error", err)
		return
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
}

// runConnectionWatchdog samples connectivity and triggers a look-back on a
// false->true edge (reconnect).
func (d *Daemon) runConnectionWatchdog(ctx context.Context, chatIDs []string) {
	ticker := time.NewTicker(d.cfg.ConnectionCheckInterval)
	defer ticker.Stop()

	d.runLookback(ctx, chatIDs) // startup look-back

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			connected := d.plat.IsConnected()
			if connected && !d.wasConnected {
				d.runLookback(ctx, chatIDs)
			}
			d.wasConnected = connected
		}
	}
}

// scanChatsSince enqueues every message since cutoff (epoch seconds) across
// chatIDs, bounded per chat by limit; used by both look-back and sweep.
func (d *Daemon) scanChatsSince(ctx context.Context, chatIDs []string, cutoffUnix int64, limit int) {
	for _, chatID := range chatIDs {
		msgs, err := d.plat.FetchHistory(ctx, chatID, 0, limit)
		if err != nil {
			logger.Warn(ctx, "scan: fetch history failed", "chat_id", chatID, "error", err)
			continue
		}
		for _, msg := range msgs {
			if msg.MessageDate < cutoffUnix {
				continue
			}
			if err := d.queue.Enqueue(ctx, msg, msg.HasEdit()); err != nil {
				logger.Warn(ctx, "scan: enqueue failed", "chat_id", chatID, "message_id", msg.MessageID, "error", err)
			}
		}
	}
}
