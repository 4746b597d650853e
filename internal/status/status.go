package status

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Encoding labels reported in FetchResult.UsedEncoding on success.
const (
	EncodingBig5       = "Big5"
	EncodingUTF8       = "UTF-8"
	EncodingDOSChinese = "DOS Chinese Trad"
)

// Failure labels reported in FetchResult.UsedEncoding when a fetch fails.
// A failed fetch always carries an empty city list.
const (
	LabelURLError     = "URL錯誤"
	LabelNetworkError = "網路錯誤"
	LabelNoData       = "無數據"
	LabelDecodeError  = "解析失敗"
)

// Display fallbacks.
const (
	// NoInfoText is shown for a city whose row has no announcement.
	NoInfoText = "暫無資訊"
	// NoDataText is shown when a fetch produced no rows at all.
	NoDataText = "暫無資料"
)

// Outcome classifies a FetchResult for logs and metrics.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeNoRows       Outcome = "no_rows"
	OutcomeURLError     Outcome = "url_error"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeNoData       Outcome = "no_data"
	OutcomeDecodeError  Outcome = "decode_error"
)

// DefaultCities lists the municipalities and counties in the order the
// announcement page and the city picker use.
var DefaultCities = []string{
	"台北市", "新北市", "桃園市", "台中市", "台南市", "高雄市",
	"基隆市", "新竹市", "嘉義市", "新竹縣", "苗栗縣", "彰化縣",
	"南投縣", "雲林縣", "嘉義縣", "屏東縣", "宜蘭縣", "花蓮縣",
	"台東縣", "澎湖縣", "金門縣", "連江縣",
}

// suspensionMarkers are the phrases the page uses when offices or schools close.
var suspensionMarkers = []string{"停止上班", "停止上課"}

// CityStatus is one row of the announcement table.
// Status is empty, one line, or a primary line and a highlighted
// follow-up line joined by "\n".
type CityStatus struct {
	City   string `json:"city"`
	Status string `json:"status"`
}

// FetchResult is produced exactly once per fetch.
type FetchResult struct {
	CityStatuses []CityStatus `json:"city_statuses"`
	UsedEncoding string       `json:"used_encoding"`
	DataSize     int          `json:"data_size"`
}

// Failed builds the result for a terminal fetch failure.
func Failed(label string, dataSize int) FetchResult {
	return FetchResult{
		CityStatuses: []CityStatus{},
		UsedEncoding: label,
		DataSize:     dataSize,
	}
}

// Display returns the status text, or NoInfoText when the row had none.
func (c CityStatus) Display() string {
	if c.Status == "" {
		return NoInfoText
	}
	return c.Status
}

// Lines splits the status into its primary and follow-up lines.
func (c CityStatus) Lines() []string {
	if c.Status == "" {
		return nil
	}
	return strings.Split(c.Status, "\n")
}

// Suspended reports whether the announcement closes offices or schools.
func (c CityStatus) Suspended() bool {
	for _, m := range suspensionMarkers {
		if strings.Contains(c.Status, m) {
			return true
		}
	}
	return false
}

// Failed reports whether the result carries one of the failure labels.
func (r FetchResult) Failed() bool {
	switch r.UsedEncoding {
	case LabelURLError, LabelNetworkError, LabelNoData, LabelDecodeError:
		return true
	}
	return false
}

// Outcome classifies the result. OutcomeNoRows covers both a page with no
// announcements and a page whose layout no longer matches the markers.
func (r FetchResult) Outcome() Outcome {
	switch r.UsedEncoding {
	case LabelURLError:
		return OutcomeURLError
	case LabelNetworkError:
		return OutcomeNetworkError
	case LabelNoData:
		return OutcomeNoData
	case LabelDecodeError:
		return OutcomeDecodeError
	}
	if len(r.CityStatuses) == 0 {
		return OutcomeNoRows
	}
	return OutcomeOK
}

// EncodingLabel renders the encoding and payload size line.
func (r FetchResult) EncodingLabel() string {
	return fmt.Sprintf("編碼: %s (數據大小: %d bytes)", r.UsedEncoding, r.DataSize)
}

// Cities returns the city names in row order.
func (r FetchResult) Cities() []string {
	cities := make([]string, 0, len(r.CityStatuses))
	for _, cs := range r.CityStatuses {
		cities = append(cities, cs.City)
	}
	return cities
}

// Lookup returns the first row whose city matches name after normalization.
func (r FetchResult) Lookup(name string) (CityStatus, bool) {
	want := NormalizeCity(name)
	if want == "" {
		return CityStatus{}, false
	}
	for _, cs := range r.CityStatuses {
		if NormalizeCity(cs.City) == want {
			return cs, true
		}
	}
	return CityStatus{}, false
}

// NormalizeCity folds width variants and the 臺/台 spelling so user input
// matches page text.
func NormalizeCity(name string) string {
	name = norm.NFKC.String(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "臺", "台")
}
