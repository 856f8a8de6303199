// Package geo converts WGS-84 coordinates into KMA DFS forecast grid cells.
//
// The projection is the Lambert conformal conic transform published in the
// KMA short-term forecast OpenAPI guide. The constants are fixed by the
// guide and must not be tuned: changing any of them silently shifts every
// resolved cell.
package geo

import (
	"math"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

const (
	earthRadiusKm = 6371.00877 // guide value, not WGS-84 mean radius
	gridSpacingKm = 5.0
	stdParallel1  = 30.0 // degrees
	stdParallel2  = 60.0
	originLon     = 126.0
	originLat     = 38.0
	gridOriginX   = 43  // cell offset of the projection origin
	gridOriginY   = 136
)

const degToRad = math.Pi / 180.0

// Derived projection terms. Computed once; all inputs are compile-time
// constants so the results are bit-stable across runs.
var (
	re    = earthRadiusKm / gridSpacingKm
	slat1 = stdParallel1 * degToRad
	slat2 = stdParallel2 * degToRad
	olon  = originLon * degToRad
	olat  = originLat * degToRad

	sn = math.Log(math.Cos(slat1)/math.Cos(slat2)) /
		math.Log(math.Tan(math.Pi*0.25+slat2*0.5)/math.Tan(math.Pi*0.25+slat1*0.5))
	sf = math.Pow(math.Tan(math.Pi*0.25+slat1*0.5), sn) * math.Cos(slat1) / sn
	ro = re * sf / math.Pow(math.Tan(math.Pi*0.25+olat*0.5), sn)
)

// Project converts a latitude/longitude pair to its DFS grid cell.
// Deterministic: identical inputs always yield the identical cell. The only
// rounding happens at the final step, round-half-up via floor(v + 0.5).
// Returns domain.ErrInvalidCoordinate outside lat ∈ [-90,90], lon ∈ [-180,180].
func Project(lat, lon float64) (domain.GridCell, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.GridCell{}, domain.ErrInvalidCoordinate
	}

	ra := re * sf / math.Pow(math.Tan(math.Pi*0.25+lat*degToRad*0.5), sn)
	theta := lon*degToRad - olon
	if theta > math.Pi {
		theta -= 2.0 * math.Pi
	}
	if theta < -math.Pi {
		theta += 2.0 * math.Pi
	}
	theta *= sn

	return domain.GridCell{
		NX: int(math.Floor(ra*math.Sin(theta) + gridOriginX + 0.5)),
		NY: int(math.Floor(ro - ra*math.Cos(theta) + gridOriginY + 0.5)),
	}, nil
}
