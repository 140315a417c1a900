package maintenance

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
)

func TestCheckpointerFlushesOnSchedule(t *testing.T) {
	pc := cache.New(disk.NewMem(8), replacer.New(4, 2), 4, 0)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ck, err := NewCheckpointer(pc, "@every 50ms", log)
	require.NoError(t, err)

	pin, err := pc.NewPage()
	require.NoError(t, err)
	w := pin.Write()
	w.Bytes()[0] = 0xAB
	w.Unlock()
	pin.Unpin()

	ck.Start()
	defer ck.Stop()
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, pc.FlushAll())
}

func TestNewCheckpointerRejectsBadSchedule(t *testing.T) {
	pc := cache.New(disk.NewMem(8), replacer.New(4, 2), 4, 0)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewCheckpointer(pc, "not a schedule", log)
	require.Error(t, err)
}
