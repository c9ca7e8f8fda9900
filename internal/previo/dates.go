package previo

import "time"

// instantLayouts is the fixed, ordered list of layouts the reservation feed
// has been observed to emit. RFC3339 is tried first; the day-first forms are
// what the hotel system exports when no zone is configured.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseInstant converts a heterogeneous date representation into a concrete
// time. Already-structured instants pass through unchanged. Strings are tried
// against each known layout in order. The second return value reports whether
// the value could be interpreted at all; callers treat false as an invalid
// window, never as an error to propagate.
func ParseInstant(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		if v == "" {
			return time.Time{}, false
		}
		for _, layout := range instantLayouts {
			if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
