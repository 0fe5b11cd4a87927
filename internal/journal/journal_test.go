package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)

	j.RecordPlacement(PlacementRecord{Tick: 10, ActorID: "vr-1", AnchorX: 2, AnchorZ: 0, Size: "1x1", Cells: 1, Version: 1})
	j.RecordPlacement(PlacementRecord{Tick: 12, ActorID: "vr-1", AnchorX: 3, AnchorZ: 0, Size: "1x2", Cells: 2, Version: 2})
	// Close flushes the writer queue before returning.
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.RecentPlacements(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(12), records[0].Tick)
	assert.Equal(t, "1x2", records[0].Size)
}

func TestJournalRecentPlacementsNewestFirst(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 3; i++ {
		j.RecordPlacement(PlacementRecord{
			Tick:    uint64(i + 1),
			ActorID: "vr-1",
			AnchorX: i + 2,
			Size:    "1x1",
			Cells:   1,
			Version: uint64(i + 1),
		})
	}
	waitForDepth(t, j, 0)

	records, err := j.RecentPlacements(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(3), records[0].Tick)
	assert.Equal(t, uint64(2), records[1].Tick)
	assert.Equal(t, "vr-1", records[0].ActorID)
	assert.False(t, records[0].RecordedAt.IsZero())
}

func TestJournalRecordReset(t *testing.T) {
	j := openTestJournal(t)

	j.RecordReset(ResetRecord{Tick: 42, ActorID: "vr-1", Version: 7})
	waitForDepth(t, j, 0)

	var count int
	require.NoError(t, j.db.QueryRow(`SELECT COUNT(*) FROM resets`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestJournalOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

// waitForDepth polls until the async writer drains its queue.
func waitForDepth(t *testing.T, j *Journal, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if j.Depth() == want {
			// One extra beat: Depth hits zero while the last row is
			// still being inserted.
			time.Sleep(50 * time.Millisecond)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("journal queue never drained to %d", want)
}
