package feels

// Risk bands, by ascending severity.
const (
	BandLow      = "Low"
	BandMedium   = "Medium"
	BandHigh     = "High"
	BandCritical = "Critical"
)

// Official KMA warning levels feeding the risk score.
const (
	WarningAdvisory = "주의보"
	WarningAlert    = "경보"
)

// Hazards are auxiliary risk flags derived from observations. A nil entry
// means the signal was unavailable, which scores as no contribution.
type Hazards struct {
	WindRisk       *bool `json:"windRisk"`
	SnowRisk       *bool `json:"snowRisk"`
	SlipFreezeRisk *bool `json:"slipFreezeRisk"`
}

// WindHazard flags wind at or above 10 m/s.
func WindHazard(windMS float64) *bool {
	v := windMS >= 10
	return &v
}

// Risk is a 0..100 composite score with its band.
type Risk struct {
	Score int    `json:"score"`
	Level string `json:"level"`
}

// ComputeRisk scores heat and cold exposure from the apparent temperature,
// then layers official warnings and auxiliary hazards on top. apparent may be
// nil when no observation produced one.
func ComputeRisk(apparent *float64, hazards Hazards, highestWarning string) Risk {
	score := 0

	if apparent != nil {
		pt := *apparent
		switch {
		case pt >= 38:
			score += 70
		case pt >= 33:
			score += 50
		case pt >= 31:
			score += 30
		}
		switch {
		case pt <= -10:
			score += 60
		case pt <= -5:
			score += 40
		case pt <= -1:
			score += 20
		}
	}

	switch highestWarning {
	case WarningAlert:
		score += 30
	case WarningAdvisory:
		score += 20
	}

	for _, h := range []*bool{hazards.WindRisk, hazards.SnowRisk, hazards.SlipFreezeRisk} {
		if h != nil && *h {
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}

	band := BandLow
	switch {
	case score >= 80:
		band = BandCritical
	case score >= 60:
		band = BandHigh
	case score >= 40:
		band = BandMedium
	}

	return Risk{Score: score, Level: band}
}
