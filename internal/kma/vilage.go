package kma

import (
	"context"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/couchcryptid/feelslike-weather-service/internal/schedule"
)

// VilageFcstComplete fetches a short-term grid issue, falling back to the
// previous issue when the scheduled one looks partially published. Returns
// the base time the items actually belong to.
func (c *Client) VilageFcstComplete(ctx context.Context, base domain.BaseTime, cell domain.GridCell) (domain.BaseTime, []domain.ForecastItem, error) {
	items, err := c.VilageFcst(ctx, base, cell)
	if err == nil && completeTimestamps(items) >= minCompleteRows {
		return base, items, nil
	}

	prev, perr := schedule.PrevShortTermBase(base)
	if perr != nil {
		if err != nil {
			return base, nil, err
		}
		return base, items, nil
	}

	c.logger.Info("short-term issue incomplete, retrying previous issue",
		"base", base.String(), "previous", prev.String(), "cell", cell.String())

	prevItems, prevErr := c.VilageFcst(ctx, prev, cell)
	if prevErr == nil && completeTimestamps(prevItems) >= minCompleteRows {
		return prev, prevItems, nil
	}

	// Neither issue is complete; serve the best of what came back.
	if err == nil {
		return base, items, nil
	}
	if prevErr == nil {
		return prev, prevItems, nil
	}
	return base, nil, err
}

// completeTimestamps counts forecast timestamps carrying both a temperature
// and a humidity value. A freshly published issue fills in over several
// minutes, so a low count means the issue is not yet worth caching.
func completeTimestamps(items []domain.ForecastItem) int {
	type stamp struct{ date, time string }
	seen := make(map[stamp]uint8)

	for _, it := range items {
		if !domain.HasValidValue(it.FcstValue) {
			continue
		}
		s := stamp{it.FcstDate, it.FcstTime}
		switch it.Category {
		case "TMP":
			seen[s] |= 1
		case "REH":
			seen[s] |= 2
		}
	}

	n := 0
	for _, bits := range seen {
		if bits == 3 {
			n++
		}
	}
	return n
}
