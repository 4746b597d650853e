package filter

import (
	"reflect"
	"testing"

	"github.com/pfrederiksen/typhoon/internal/status"
)

var sampleStatuses = []status.CityStatus{
	{City: "台北市", Status: "今天停止上班、停止上課。"},
	{City: "新北市", Status: "正常上班上課"},
	{City: "臺中市", Status: "照常上班、照常上課。\n山區請注意落石"},
	{City: "花蓮縣", Status: ""},
	{City: "台東縣", Status: "明天停止上課"},
}

func cities(statuses []status.CityStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, cs := range statuses {
		out = append(out, cs.City)
	}
	return out
}

func TestNewFilter(t *testing.T) {
	f := NewFilter()
	if !f.IsEmpty() {
		t.Error("NewFilter() should be empty")
	}
	if f.String() != "No active filters" {
		t.Errorf("String() = %q, want %q", f.String(), "No active filters")
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"nil filter", nil, true},
		{"zero filter", &Filter{}, true},
		{"with city", &Filter{Cities: []string{"台北市"}}, false},
		{"with keyword", &Filter{Keywords: []string{"停止"}}, false},
		{"suspended only", &Filter{SuspendedOnly: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   []string
	}{
		{
			name:   "empty filter keeps everything",
			filter: NewFilter(),
			want:   []string{"台北市", "新北市", "臺中市", "花蓮縣", "台東縣"},
		},
		{
			name:   "city exact",
			filter: &Filter{Cities: []string{"新北市"}},
			want:   []string{"新北市"},
		},
		{
			name:   "city variant spelling",
			filter: &Filter{Cities: []string{"台中市"}},
			want:   []string{"臺中市"},
		},
		{
			name:   "city prefix",
			filter: &Filter{Cities: []string{"台"}},
			want:   []string{"台北市", "臺中市", "台東縣"},
		},
		{
			name:   "several cities keep page order",
			filter: &Filter{Cities: []string{"台東縣", "台北市"}},
			want:   []string{"台北市", "台東縣"},
		},
		{
			name:   "keyword",
			filter: &Filter{Keywords: []string{"落石"}},
			want:   []string{"臺中市"},
		},
		{
			name:   "any keyword",
			filter: &Filter{Keywords: []string{"正常", "明天"}},
			want:   []string{"新北市", "台東縣"},
		},
		{
			name:   "suspended only",
			filter: &Filter{SuspendedOnly: true},
			want:   []string{"台北市", "台東縣"},
		},
		{
			name:   "criteria combine",
			filter: &Filter{Cities: []string{"台"}, SuspendedOnly: true, Keywords: []string{"明天"}},
			want:   []string{"台東縣"},
		},
		{
			name:   "no match",
			filter: &Filter{Cities: []string{"金門縣"}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cities(tt.filter.Apply(sampleStatuses))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Apply_NonNil(t *testing.T) {
	f := &Filter{SuspendedOnly: true}
	got := f.Apply([]status.CityStatus{{City: "新北市", Status: "正常上班上課"}})
	if got == nil {
		t.Error("Apply() should return an empty slice, not nil")
	}
}

func TestFilter_ApplyChanges(t *testing.T) {
	changes := []*status.Change{
		{City: "台北市", Kind: status.ChangeUpdated, OldStatus: "正常上班上課", NewStatus: "停止上班"},
		{City: "新北市", Kind: status.ChangeUpdated, OldStatus: "停止上班", NewStatus: "正常上班上課"},
		{City: "花蓮縣", Kind: status.ChangeRemoved, OldStatus: "停止上課"},
	}

	tests := []struct {
		name   string
		filter *Filter
		want   []string
	}{
		{"empty", NewFilter(), []string{"台北市", "新北市", "花蓮縣"}},
		{"suspended looks at new status", &Filter{SuspendedOnly: true}, []string{"台北市"}},
		{"keyword matches old or new", &Filter{Keywords: []string{"停止"}}, []string{"台北市", "新北市", "花蓮縣"}},
		{"city", &Filter{Cities: []string{"花蓮"}}, []string{"花蓮縣"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range tt.filter.ApplyChanges(changes) {
				got = append(got, c.City)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyChanges() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_String(t *testing.T) {
	f := &Filter{
		Cities:        []string{"台北市", "新北市"},
		Keywords:      []string{"停止"},
		SuspendedOnly: true,
	}
	want := "Cities: 台北市, 新北市 | Keywords: 停止 | Suspended only"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFilter_Clone(t *testing.T) {
	original := &Filter{
		Cities:        []string{"台北市"},
		Keywords:      []string{"停止"},
		SuspendedOnly: true,
	}

	clone := original.Clone()
	if !reflect.DeepEqual(original, clone) {
		t.Errorf("Clone() = %+v, want %+v", clone, original)
	}

	clone.Cities[0] = "高雄市"
	clone.Keywords = append(clone.Keywords, "上課")
	if original.Cities[0] != "台北市" {
		t.Error("modifying clone cities affected original")
	}
	if len(original.Keywords) != 1 {
		t.Error("modifying clone keywords affected original")
	}
}
