package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/typhoon/internal/status"
)

var base = time.Date(2026, 8, 2, 20, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func result(statuses ...status.CityStatus) status.FetchResult {
	return status.FetchResult{
		CityStatuses: append([]status.CityStatus{}, statuses...),
		UsedEncoding: status.EncodingBig5,
		DataSize:     1024,
	}
}

func TestOpen(t *testing.T) {
	t.Run("creates database in new directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		db, err := Open(dir, DefaultOptions())
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(filepath.Join(dir, FileName))
		assert.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, FileName), db.Path())
	})

	t.Run("missing database without create", func(t *testing.T) {
		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		assert.Error(t, err)
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		require.NoError(t, err)
		_, err = db.Record(context.Background(), "", result(status.CityStatus{City: "台北市"}), base)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db, err = Open(dir, Options{EnableWAL: true})
		require.NoError(t, err)
		defer db.Close()

		records, err := db.Recent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestRecordAndRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := result(
		status.CityStatus{City: "台北市", Status: "停止上班上課\n山區請注意落石"},
		status.CityStatus{City: "新北市", Status: "正常上班上課"},
	)
	id1, err := db.Record(ctx, "", first, base)
	require.NoError(t, err)

	id2, err := db.Record(ctx, "mirror", status.Failed(status.LabelNetworkError, 0), base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	records, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, id2, records[0].ID)
	assert.Equal(t, "mirror", records[0].Source)
	assert.Equal(t, status.OutcomeNetworkError, records[0].Outcome)
	assert.Equal(t, status.LabelNetworkError, records[0].UsedEncoding)
	assert.Equal(t, 0, records[0].CityCount)

	assert.Equal(t, id1, records[1].ID)
	assert.True(t, base.Equal(records[1].FetchedAt), "FetchedAt = %v", records[1].FetchedAt)
	assert.Equal(t, status.OutcomeOK, records[1].Outcome)
	assert.Equal(t, 2, records[1].CityCount)
	assert.Equal(t, 1024, records[1].DataSize)
	assert.Equal(t, first.CityStatuses, records[1].Result.CityStatuses)

	limited, err := db.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecent_SubSecondOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Record(ctx, "", result(status.CityStatus{City: "a"}), base)
	require.NoError(t, err)
	later, err := db.Record(ctx, "", result(status.CityStatus{City: "b"}), base.Add(500*time.Millisecond))
	require.NoError(t, err)

	records, err := db.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, later, records[0].ID)
}

func TestLastSuccess(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	record, err := db.LastSuccess(ctx)
	require.NoError(t, err)
	assert.Nil(t, record)

	okID, err := db.Record(ctx, "", result(status.CityStatus{City: "台北市"}), base)
	require.NoError(t, err)
	_, err = db.Record(ctx, "", status.Failed(status.LabelDecodeError, 99), base.Add(time.Minute))
	require.NoError(t, err)

	record, err = db.LastSuccess(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, okID, record.ID)

	emptyID, err := db.Record(ctx, "", result(), base.Add(2*time.Minute))
	require.NoError(t, err)

	record, err = db.LastSuccess(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, emptyID, record.ID, "zero-row fetches count as successes")
	assert.Equal(t, status.OutcomeNoRows, record.Outcome)
}

func TestCityTimeline(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	steps := []string{
		"照常上班、照常上課。",
		"照常上班、照常上課。",
		"停止上班、停止上課。",
		"停止上班、停止上課。",
		"照常上班、照常上課。",
	}
	for i, s := range steps {
		_, err := db.Record(ctx, "", result(
			status.CityStatus{City: "臺北市", Status: s},
			status.CityStatus{City: "新北市", Status: "正常上班上課"},
			status.CityStatus{City: "臺北市", Status: "duplicate row"},
		), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	entries, err := db.CityTimeline(ctx, "台北市", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "照常上班、照常上課。", entries[0].Status)
	assert.True(t, base.Add(4*time.Hour).Equal(entries[0].FetchedAt))
	assert.Equal(t, "停止上班、停止上課。", entries[1].Status)
	assert.True(t, base.Add(2*time.Hour).Equal(entries[1].FetchedAt))
	assert.Equal(t, "照常上班、照常上課。", entries[2].Status)
	assert.True(t, base.Equal(entries[2].FetchedAt))
	assert.Equal(t, "臺北市", entries[0].City)

	limited, err := db.CityTimeline(ctx, "台北市", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := db.CityTimeline(ctx, "高雄市", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPrune(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := range 3 {
		_, err := db.Record(ctx, "", result(status.CityStatus{City: "台北市", Status: "x"}), base.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, err)
	}

	n, err := db.Prune(ctx, base.Add(36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	records, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, base.Add(48*time.Hour).Equal(records[0].FetchedAt))

	entries, err := db.CityTimeline(ctx, "台北市", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-08-02T20:00:00.000000000Z", base},
		{"2026-08-02T20:00:00Z", base},
		{"2026-08-02 20:00:00", base},
		{"garbage", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTimestamp(tt.input)))
		})
	}
}
