package status

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestDiff(t *testing.T) {
	fixed := time.Date(2026, 7, 28, 16, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	previous := CreateSnapshot(FetchResult{
		CityStatuses: []CityStatus{
			{City: "台北市", Status: "照常上班、照常上課。"},
			{City: "基隆市", Status: "照常上班、照常上課。"},
			{City: "金門縣", Status: "尚未列入警戒區。"},
		},
		UsedEncoding: EncodingBig5,
		DataSize:     100,
	})

	current := FetchResult{
		CityStatuses: []CityStatus{
			{City: "臺北市", Status: "停止上班、停止上課。"},
			{City: "基隆市", Status: "照常上班、照常上課。"},
			{City: "新北市", Status: "停止上班、停止上課。\n山區請注意落石"},
		},
		UsedEncoding: EncodingBig5,
		DataSize:     120,
	}

	t.Run("finds changed, new, and removed cities", func(t *testing.T) {
		changes := Diff(previous, current)

		if len(changes) != 3 {
			t.Fatalf("expected 3 changes, got %d", len(changes))
		}

		expected := []struct {
			city string
			kind ChangeKind
		}{
			{"臺北市", ChangeUpdated},
			{"新北市", ChangeNew},
			{"金門縣", ChangeRemoved},
		}
		for i, want := range expected {
			if changes[i].City != want.city || changes[i].Kind != want.kind {
				t.Errorf("change[%d] = %s/%s, want %s/%s", i, changes[i].City, changes[i].Kind, want.city, want.kind)
			}
			if !changes[i].DetectedAt.Equal(fixed) {
				t.Errorf("change[%d].DetectedAt = %v, want %v", i, changes[i].DetectedAt, fixed)
			}
		}

		if changes[0].OldStatus != "照常上班、照常上課。" {
			t.Errorf("OldStatus = %q", changes[0].OldStatus)
		}
		if !changes[0].Suspended() {
			t.Error("expected changed city to be suspended")
		}
		if changes[2].NewStatus != "" {
			t.Errorf("removed change should have empty NewStatus, got %q", changes[2].NewStatus)
		}
	})

	t.Run("handles nil previous snapshot", func(t *testing.T) {
		changes := Diff(nil, current)
		if len(changes) != 3 {
			t.Fatalf("expected 3 new cities, got %d", len(changes))
		}
		for _, c := range changes {
			if c.Kind != ChangeNew {
				t.Errorf("expected kind new, got %s", c.Kind)
			}
		}
	})

	t.Run("no changes against itself", func(t *testing.T) {
		snap := CreateSnapshot(current)
		if changes := Diff(snap, current); len(changes) != 0 {
			t.Errorf("expected no changes, got %d", len(changes))
		}
	})

	t.Run("failed fetch never removes cities", func(t *testing.T) {
		changes := Diff(previous, Failed(LabelNetworkError, 0))
		if len(changes) != 0 {
			t.Errorf("expected no changes for failed fetch, got %d", len(changes))
		}
	})

	t.Run("empty page never removes cities", func(t *testing.T) {
		changes := Diff(previous, FetchResult{CityStatuses: []CityStatus{}, UsedEncoding: EncodingBig5})
		if len(changes) != 0 {
			t.Errorf("expected no changes for empty page, got %d", len(changes))
		}
	})
}

func TestCreateSnapshot(t *testing.T) {
	fixed := time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	result := FetchResult{
		CityStatuses: []CityStatus{
			{City: "高雄市", Status: "a"},
			{City: "", Status: "blank city"},
			{City: "台南市", Status: "b"},
			{City: "高雄市", Status: "duplicate"},
		},
		UsedEncoding: EncodingUTF8,
		DataSize:     64,
	}

	snap := CreateSnapshot(result)

	if len(snap.Statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(snap.Statuses))
	}
	if snap.Statuses["高雄市"].Status != "a" {
		t.Errorf("first row should win, got %q", snap.Statuses["高雄市"].Status)
	}
	if !snap.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", snap.UpdatedAt, fixed)
	}

	back := snap.Result()
	if len(back.CityStatuses) != 2 || back.CityStatuses[0].City != "高雄市" || back.CityStatuses[1].City != "台南市" {
		t.Errorf("Result() order = %v", back.Cities())
	}
	if back.UsedEncoding != EncodingUTF8 || back.DataSize != 64 {
		t.Errorf("Result() metadata = %s/%d", back.UsedEncoding, back.DataSize)
	}
}
