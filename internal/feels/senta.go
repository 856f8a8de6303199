package feels

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/feelslike-weather-service/internal/kma"
)

// hourOffsetKey matches the dynamic hourly columns of a living-index row.
var hourOffsetKey = regexp.MustCompile(`^h(\d+)$`)

// SeriesPoint is one hourly perceived-temperature value of a living-index
// bulletin.
type SeriesPoint struct {
	At     time.Time
	Offset int
	Value  float64
}

// BuildSenTaSeries flattens a living-index row into a time-ordered series.
// The row's own date field wins over the requested base time; non-numeric and
// non-hourly columns are skipped.
func BuildSenTaSeries(item kma.LivingItem, baseTime string) []SeriesPoint {
	base := firstNonEmpty(stringField(item, "date"), stringField(item, "time"), baseTime)
	at, err := parseKSTHour(base)
	if err != nil {
		return nil
	}

	var out []SeriesPoint
	for k, v := range item {
		m := hourOffsetKey.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		offset, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		value, ok := numericField(v)
		if !ok {
			continue
		}
		out = append(out, SeriesPoint{
			At:     at.Add(time.Duration(offset) * time.Hour),
			Offset: offset,
			Value:  value,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// PickNearestFuture returns the first point at or after now, or the last
// point when the whole series is in the past.
func PickNearestFuture(series []SeriesPoint, now time.Time) (SeriesPoint, bool) {
	if len(series) == 0 {
		return SeriesPoint{}, false
	}
	for _, p := range series {
		if !p.At.Before(now) {
			return p, true
		}
	}
	return series[len(series)-1], true
}

// parseKSTHour parses a YYYYMMDDHH timestamp as KST civil time.
func parseKSTHour(s string) (time.Time, error) {
	if len(s) < 10 {
		return time.Time{}, fmt.Errorf("living index base time %q too short", s)
	}
	return time.ParseInLocation("2006010215", s[:10], kst)
}

func stringField(item kma.LivingItem, key string) string {
	if v, ok := item[key].(string); ok {
		return v
	}
	return ""
}

func numericField(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
