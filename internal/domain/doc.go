// Package domain models Korea Meteorological Administration (KMA) forecast
// data and the location-resolution results built on top of it.
//
// # Upstream Products
//
// Three KMA OpenAPI products are consumed, each on its own publish cadence:
//
//	ShortTermGrid     getVilageFcst     issued 8x/day at 02,05,08,11,14,17,20,23 KST
//	HourlyNowcast     getUltraSrtNcst   issued hourly, available ~10 min past the hour
//	TenMinuteBulletin getSenTaIdxV4     living-index bulletins on 10-minute boundaries
//
// All base_date/base_time values are KST civil time in YYYYMMDD / HHMM form.
// The publish buffer matters: at 05:03 KST the 05:00 short-term issue is not
// out yet, so the applicable slot is still 02:00. See the schedule package.
//
// # Forecast Grid
//
// KMA publishes gridded products on the DFS grid, a Lambert conformal conic
// projection of the Korean peninsula into integer (nx, ny) cells of 5 km.
// A cell is obtained either by projecting a lat/lon pair or by looking up an
// administrative-subdivision key in the offline-built reference tables.
//
// # Administrative vs Legal Subdivisions
//
// Users type legal (cadastral) district names; the forecast tables are keyed
// by administrative districts. The two disagree often enough that a
// legal→administrative crosswalk table is required, and the relationship is
// many-to-many. Resolution outcomes record which matching tier succeeded so
// operators can audit surprising matches; the tier is never fed back into
// matching.
//
// # Missing Values
//
// KMA encodes missing observations as magnitudes ≥ 900 (e.g. -998, +900).
// [IsMissingValue] implements the guide's sentinel rule.
package domain
