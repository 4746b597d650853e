package filter

import (
	"fmt"
	"strings"
)

// valueSeparators split list values. The ideographic comma and the
// enumeration comma are accepted so city lists can be typed in Chinese.
const valueSeparators = ",，、"

// Parse parses a filter expression into a Filter.
//
// Supported terms, separated by whitespace:
//   - "city:台北市,新北市" (alias "cities:") - match any of the cities
//   - "keyword:停止" (alias "kw:") - status contains any of the keywords
//   - "suspended" - only statuses that suspend work or school
//
// Repeated terms accumulate. An empty expression yields an empty filter.
func Parse(input string) (*Filter, error) {
	f := NewFilter()

	for _, term := range strings.Fields(input) {
		key, value, hasValue := strings.Cut(term, ":")
		key = strings.ToLower(key)

		switch key {
		case "suspended":
			if hasValue {
				return nil, fmt.Errorf("term %q takes no value", key)
			}
			f.SuspendedOnly = true

		case "city", "cities":
			values, err := splitValues(key, value, hasValue)
			if err != nil {
				return nil, err
			}
			f.Cities = append(f.Cities, values...)

		case "keyword", "kw":
			values, err := splitValues(key, value, hasValue)
			if err != nil {
				return nil, err
			}
			f.Keywords = append(f.Keywords, values...)

		default:
			return nil, fmt.Errorf("unknown filter term %q. Use city:, keyword: or suspended", term)
		}
	}

	return f, nil
}

func splitValues(key, value string, hasValue bool) ([]string, error) {
	if !hasValue {
		return nil, fmt.Errorf("term %q needs a value, e.g. %s:台北市", key, key)
	}

	parts := strings.FieldsFunc(value, func(r rune) bool {
		return strings.ContainsRune(valueSeparators, r)
	})

	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("term %q has an empty value", key)
	}
	return values, nil
}
