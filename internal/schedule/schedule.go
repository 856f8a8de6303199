// Package schedule computes, for each upstream product, which publish slot a
// query should target and how long a cached response stays fresh.
//
// All computations are pure functions of the injected "now"; nothing in this
// package reads the wall clock. KMA publish times are KST civil time, so
// every calculation converts to KST first regardless of the caller's zone.
package schedule

import (
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

// kst is fixed at UTC+9; Korea has not observed DST since 1988.
var kst = time.FixedZone("KST", 9*60*60)

// shortTermSlots are the eight daily issue hours of the short-term grid
// forecast, ascending.
var shortTermSlots = [...]int{2, 5, 8, 11, 14, 17, 20, 23}

const (
	// publishBuffer is how long after its nominal slot an issue actually
	// becomes retrievable upstream.
	publishBuffer = 10 * time.Minute

	// bulletinMargin keeps a bulletin cache entry from outliving its bucket
	// by a clock-skew hair.
	bulletinMargin = 5 * time.Second

	// minTTL floors every computed TTL.
	minTTL = time.Minute
)

// Slot is the query timestamp for a product plus the time until the next
// issue is expected to exist upstream.
type Slot struct {
	Base domain.BaseTime
	TTL  time.Duration
}

// For returns the applicable slot for product at the given instant.
func For(product domain.Product, now time.Time) (Slot, error) {
	switch product {
	case domain.ShortTermGrid:
		return ShortTermGridSlot(now), nil
	case domain.HourlyNowcast:
		return HourlyNowcastSlot(now), nil
	case domain.TenMinuteBulletin:
		return TenMinuteBulletinSlot(now), nil
	default:
		return Slot{}, fmt.Errorf("unknown product %q", product)
	}
}

// ShortTermGridSlot picks the latest issue hour at or before now. Within the
// publish buffer of a slot hour the previous issue is still current. Before
// the day's first slot the previous day's 23:00 issue applies.
func ShortTermGridSlot(now time.Time) Slot {
	k := now.In(kst)

	h := k.Hour()
	if k.Minute() < int(publishBuffer.Minutes()) {
		h--
	}

	slot := -1
	for _, s := range shortTermSlots {
		if s <= h {
			slot = s
		}
	}

	day := k
	if slot < 0 {
		day = k.AddDate(0, 0, -1)
		slot = shortTermSlots[len(shortTermSlots)-1]
	}

	return Slot{
		Base: domain.BaseTime{Date: ymd(day), Time: fmt.Sprintf("%02d00", slot)},
		TTL:  clampTTL(nextShortTermIssue(k).Sub(k)),
	}
}

// nextShortTermIssue returns the buffer point of the first issue strictly
// usable after now.
func nextShortTermIssue(k time.Time) time.Time {
	for _, s := range shortTermSlots {
		at := time.Date(k.Year(), k.Month(), k.Day(), s, 0, 0, 0, kst).Add(publishBuffer)
		if at.After(k) {
			return at
		}
	}
	next := k.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), shortTermSlots[0], 0, 0, 0, kst).Add(publishBuffer)
}

// HourlyNowcastSlot targets the top of the current hour, or the previous
// hour while the current issue is still inside its publish buffer.
func HourlyNowcastSlot(now time.Time) Slot {
	k := now.In(kst)

	base := time.Date(k.Year(), k.Month(), k.Day(), k.Hour(), 0, 0, 0, kst)
	if k.Minute() < int(publishBuffer.Minutes()) {
		base = base.Add(-time.Hour)
	}

	nextIssue := base.Add(time.Hour + publishBuffer)

	return Slot{
		Base: domain.BaseTime{Date: ymd(base), Time: hhmm(base)},
		TTL:  clampTTL(nextIssue.Sub(k)),
	}
}

// TenMinuteBulletinSlot targets the current 10-minute boundary.
func TenMinuteBulletinSlot(now time.Time) Slot {
	k := now.In(kst)

	bucket := k.Truncate(10 * time.Minute).In(kst)
	next := bucket.Add(10 * time.Minute)

	return Slot{
		Base: domain.BaseTime{Date: ymd(bucket), Time: hhmm(bucket)},
		TTL:  clampTTL(next.Sub(k) - bulletinMargin),
	}
}

// PrevShortTermBase returns the issue immediately before base. Used when an
// issue turns out to be only partially published upstream.
func PrevShortTermBase(base domain.BaseTime) (domain.BaseTime, error) {
	day, err := time.ParseInLocation("20060102", base.Date, kst)
	if err != nil {
		return domain.BaseTime{}, fmt.Errorf("parse base date %q: %w", base.Date, err)
	}
	if len(base.Time) != 4 {
		return domain.BaseTime{}, fmt.Errorf("parse base time %q", base.Time)
	}
	hour, err := strconv.Atoi(base.Time[:2])
	if err != nil {
		return domain.BaseTime{}, fmt.Errorf("parse base time %q: %w", base.Time, err)
	}

	prev := -1
	for _, s := range shortTermSlots {
		if s < hour {
			prev = s
		}
	}
	if prev < 0 {
		day = day.AddDate(0, 0, -1)
		prev = shortTermSlots[len(shortTermSlots)-1]
	}

	return domain.BaseTime{Date: ymd(day), Time: fmt.Sprintf("%02d00", prev)}, nil
}

func clampTTL(d time.Duration) time.Duration {
	if d < minTTL {
		return minTTL
	}
	return d
}

func ymd(t time.Time) string {
	return t.Format("20060102")
}

func hhmm(t time.Time) string {
	return t.Format("1504")
}
