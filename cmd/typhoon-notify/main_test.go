package main

import (
	"strings"
	"testing"

	"github.com/pfrederiksen/typhoon/internal/status"
)

func TestReadChanges(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name: "watch report",
			input: `{"checked_at":"2024-07-24T08:00:00Z","outcome":"ok","changes":[
				{"city":"台北市","kind":"changed","old_status":"正常上班上課","new_status":"停止上班上課"},
				{"city":"金門縣","kind":"new","new_status":"照常上班"}],"change_count":2}`,
			want: []string{"台北市", "金門縣"},
		},
		{
			name:  "no changes",
			input: `{"changes":[],"change_count":0}`,
			want:  []string{},
		},
		{
			name:    "not json",
			input:   "NEW: 台北市",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, err := readChanges(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readChanges() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(changes) != len(tt.want) {
				t.Fatalf("readChanges() returned %d changes, want %d", len(changes), len(tt.want))
			}
			for i, c := range changes {
				if c.City != tt.want[i] {
					t.Errorf("changes[%d].City = %q, want %q", i, c.City, tt.want[i])
				}
			}
		})
	}
}

func TestReadChanges_Kind(t *testing.T) {
	changes, err := readChanges(strings.NewReader(`{"changes":[{"city":"花蓮縣","kind":"removed","old_status":"停止上課"}]}`))
	if err != nil {
		t.Fatalf("readChanges() error = %v", err)
	}
	if changes[0].Kind != status.ChangeRemoved {
		t.Errorf("Kind = %q, want %q", changes[0].Kind, status.ChangeRemoved)
	}
	if changes[0].Suspended() {
		t.Error("a removal has no new status and should not count as suspended")
	}
}
