package domain

import (
	"fmt"
	"strconv"
)

// GridCell identifies one cell of the KMA DFS forecast grid.
type GridCell struct {
	NX int `json:"nx"`
	NY int `json:"ny"`
}

func (c GridCell) String() string {
	return strconv.Itoa(c.NX) + "," + strconv.Itoa(c.NY)
}

// Product names one upstream KMA product family. The value doubles as the
// product tag inside cache keys, so it must stay stable.
type Product string

const (
	ShortTermGrid     Product = "vilage"
	HourlyNowcast     Product = "ultra"
	TenMinuteBulletin Product = "bulletin"
)

// Valid reports whether p is one of the known products.
func (p Product) Valid() bool {
	switch p {
	case ShortTermGrid, HourlyNowcast, TenMinuteBulletin:
		return true
	}
	return false
}

// BaseTime is a KMA publish timestamp: base_date YYYYMMDD and base_time HHMM,
// both in KST civil time.
type BaseTime struct {
	Date string
	Time string
}

func (b BaseTime) String() string {
	return b.Date + b.Time
}

// ForecastItem is one row of a KMA product response body. Nowcast rows carry
// ObsrValue, forecast rows carry FcstDate/FcstTime/FcstValue; the remaining
// fields are shared.
type ForecastItem struct {
	BaseDate  string `json:"baseDate"`
	BaseTime  string `json:"baseTime"`
	Category  string `json:"category"`
	FcstDate  string `json:"fcstDate,omitempty"`
	FcstTime  string `json:"fcstTime,omitempty"`
	FcstValue string `json:"fcstValue,omitempty"`
	ObsrValue string `json:"obsrValue,omitempty"`
	NX        int    `json:"nx"`
	NY        int    `json:"ny"`
}

// CacheMeta describes how a retrieval was satisfied.
type CacheMeta struct {
	Hit               bool  `json:"hit"`
	TTLSeconds        int   `json:"ttlSeconds"`
	NextRefreshMillis int64 `json:"nextRefreshMillis"`
	Stale             bool  `json:"stale"`
}

// MatchMethod records which resolver tier produced a match. Diagnostic only.
type MatchMethod string

const (
	MatchAdminExact     MatchMethod = "admin-exact"
	MatchCrosswalk      MatchMethod = "legal-admin"
	MatchNumberedSuffix MatchMethod = "numbered-suffix"
	MatchSubstring      MatchMethod = "substring"
	MatchTokenSet       MatchMethod = "token-set"
	MatchSuffix         MatchMethod = "suffix"
	MatchAutoCorrect    MatchMethod = "auto-corrected"
)

// UnresolvedReason classifies a resolution failure.
type UnresolvedReason string

const (
	ReasonNotFound      UnresolvedReason = "NOT_FOUND"
	ReasonNoSubdistrict UnresolvedReason = "NO_SUBDISTRICT"
)

// ResolveResult is the outcome of resolving a free-text place name.
// When Resolved is true, Cell/AdminKey/Method are set; Suggestions may still
// be populated (numbered-suffix expansion surfaces the concrete variants it
// chose between). When false, Reason and Suggestions describe the failure.
type ResolveResult struct {
	Resolved    bool             `json:"resolved"`
	Cell        GridCell         `json:"cell,omitempty"`
	AdminKey    string           `json:"adminKey,omitempty"`
	Method      MatchMethod      `json:"method,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
	Reason      UnresolvedReason `json:"reason,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// missingThreshold follows the KMA guide: magnitudes at or beyond ±900 are
// sentinel values for missing observations.
const missingThreshold = 900

// IsMissingValue reports whether a raw KMA value string encodes a missing
// observation. Non-numeric strings are not missing; they are categorical
// values such as sky codes.
func IsMissingValue(raw string) bool {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	return n >= missingThreshold || n <= -missingThreshold
}

// HasValidValue reports whether a raw value is present and not the missing
// sentinel.
func HasValidValue(raw string) bool {
	return raw != "" && !IsMissingValue(raw)
}

// NumberOrNaN parses a KMA value string, mapping empty and sentinel values
// to an error.
func NumberOrNaN(raw string) (float64, error) {
	if !HasValidValue(raw) {
		return 0, fmt.Errorf("missing value %q", raw)
	}
	return strconv.ParseFloat(raw, 64)
}
