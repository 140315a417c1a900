// Package maintenance runs background upkeep jobs against a page cache,
// outside the request path: currently a periodic checkpoint that flushes
// every dirty page to disk.
package maintenance

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/SimonWaldherr/basedb/internal/storage/cache"
)

// Checkpointer periodically flushes a page cache on a cron schedule.
type Checkpointer struct {
	cron *cron.Cron
	pc   *cache.PageCache
	log  *slog.Logger
}

// NewCheckpointer builds a checkpointer that flushes pc every time spec
// fires (standard 5-field cron syntax, e.g. "*/30 * * * *" for every 30
// minutes). It does not start the schedule; call Start.
func NewCheckpointer(pc *cache.PageCache, spec string, log *slog.Logger) (*Checkpointer, error) {
	c := cron.New()
	ck := &Checkpointer{cron: c, pc: pc, log: log}
	if _, err := c.AddFunc(spec, ck.runOnce); err != nil {
		return nil, err
	}
	return ck, nil
}

// Start begins the checkpoint schedule in the background.
func (c *Checkpointer) Start() { c.cron.Start() }

// Stop halts the schedule, waiting for any in-flight checkpoint to
// finish.
func (c *Checkpointer) Stop() { <-c.cron.Stop().Done() }

func (c *Checkpointer) runOnce() {
	if err := c.pc.FlushAll(); err != nil {
		c.log.Error("maintenance: checkpoint flush failed", "error", err)
		return
	}
	c.log.Debug("maintenance: checkpoint flushed")
}
