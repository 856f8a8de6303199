// Package feels holds the apparent-temperature formulas and the occupational
// risk scoring built on them. Summer uses the KMA 2016 perceived-temperature
// regression over the Stull wet-bulb estimate; winter uses the wind-chill
// equivalent temperature. All outputs are rounded to 0.1 degC, matching the
// precision KMA publishes.
package feels

import (
	"math"
	"time"
)

var kst = time.FixedZone("KST", 9*60*60)

// LegalMinPT is the statutory heat-work threshold: protective measures become
// mandatory at an apparent temperature of 31 degC.
const LegalMinPT = 31.0

// Heat advisory levels, ascending.
const (
	LevelNormal  = "정상"
	LevelNotice  = "관심"
	LevelCaution = "주의"
	LevelWarning = "경고"
	LevelDanger  = "위험"
)

// wetBulbStull estimates the wet-bulb temperature from air temperature (degC)
// and relative humidity (%) using Stull (2011).
func wetBulbStull(ta, rh float64) float64 {
	return ta*math.Atan(0.151977*math.Sqrt(rh+8.313659)) +
		math.Atan(ta+rh) -
		math.Atan(rh-1.676331) +
		0.00391838*math.Pow(rh, 1.5)*math.Atan(0.023101*rh) -
		4.686035
}

// PerceivedTemp computes the KMA 2016 summer apparent temperature.
func PerceivedTemp(ta, rh float64) float64 {
	tw := wetBulbStull(ta, rh)
	pt := -0.2442 + 0.55399*tw + 0.45535*ta - 0.0022*tw*tw + 0.00278*tw*ta + 3.0
	return round1(pt)
}

// WindChill computes the wind-chill equivalent temperature from air
// temperature (degC) and wind speed (m/s). The formula only applies at or
// below 10 degC with wind of at least 1.3 m/s; outside that envelope the air
// temperature is the apparent temperature.
func WindChill(ta, windMS float64) float64 {
	if math.IsNaN(ta) {
		return math.NaN()
	}
	if math.IsNaN(windMS) || ta > 10 || windMS < 1.3 {
		return ta
	}
	p := math.Pow(windMS*3.6, 0.16)
	return round1(13.12 + 0.6215*ta - 11.37*p + 0.3965*ta*p)
}

// Level maps an apparent temperature to the heat advisory level.
func Level(pt float64) string {
	switch {
	case pt >= 40:
		return LevelDanger
	case pt >= 38:
		return LevelWarning
	case pt >= 35:
		return LevelCaution
	case pt >= 32:
		return LevelNotice
	}
	return LevelNormal
}

var actionByLevel = map[string]string{
	LevelNormal:  "정상: 물·그늘·휴식 준비상태 유지, 열질환자 교육/증상 모니터링을 지속하세요.",
	LevelNotice:  "관심(≥32℃): 작업 전 점검 강화, 1시간당 10분 이상 휴식 권고, 수분·염분 보충을 강화하세요.",
	LevelCaution: "주의(≥35℃): 2시간마다 20분 이상 휴식, 중노동 축소·교대작업, 취약 근로자 보호조치를 시행하세요.",
	LevelWarning: "경고(≥38℃): 1시간 기준 15~20분 이상 휴식, 작업강도 대폭 축소·순환작업, 응급대응 준비를 유지하세요.",
	LevelDanger:  "위험(≥40℃): 즉시 작업중지 및 대피, 응급조치 체계를 가동하고 재개 여부를 관리자 회의로 결정하세요.",
}

// Action returns the recommended workplace action for a level, annotated when
// the statutory threshold is met.
func Action(level string, pt float64) string {
	base, ok := actionByLevel[level]
	if !ok {
		base = actionByLevel[LevelNormal]
	}
	if pt >= LegalMinPT {
		return base + " (법정기준 도달: 체감온도 31℃ 이상 → 보호조치 의무 이행 필요)"
	}
	return base
}

// IsSummerSeason reports whether the instant falls in the living-index
// service window, May through September in KST civil time.
func IsSummerSeason(t time.Time) bool {
	m := t.In(kst).Month()
	return m >= time.May && m <= time.September
}

// round1 rounds to one decimal, half away from zero toward positive.
func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
