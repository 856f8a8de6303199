// Package service composes the resolver, the retrieval orchestrator, and the
// apparent-temperature formulas into the reports the HTTP surface returns.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/couchcryptid/feelslike-weather-service/internal/feels"
	"github.com/couchcryptid/feelslike-weather-service/internal/kma"
	"github.com/couchcryptid/feelslike-weather-service/internal/observability"
	"github.com/couchcryptid/feelslike-weather-service/internal/resolver"
	"github.com/couchcryptid/feelslike-weather-service/internal/retrieval"
)

// ErrUnresolved marks a report whose region could not be mapped to a grid
// cell; the report's Resolve field carries the reason and suggestions.
var ErrUnresolved = errors.New("region not resolved")

// Apparent-temperature sources in report payloads.
const (
	sourceLiving    = "living-index"
	sourceFormula   = "kma2016"
	sourceWindChill = "wind-chill"
)

// Observation is the nowcast snapshot a report was computed from. Pointer
// fields are nil when the upstream reported the value missing.
type Observation struct {
	BaseDate    string   `json:"baseDate"`
	BaseTime    string   `json:"baseTime"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *float64 `json:"windSpeed"`
}

// FeelsMetrics is the computed apparent-temperature block.
type FeelsMetrics struct {
	ApparentTemperature *float64 `json:"apparentTemperature"`
	Level               string   `json:"level,omitempty"`
	Source              string   `json:"source,omitempty"`
	Action              string   `json:"action,omitempty"`
}

// FeelsReport is one region's full answer.
type FeelsReport struct {
	OK       bool                 `json:"ok"`
	Region   string               `json:"region"`
	Resolve  domain.ResolveResult `json:"resolve"`
	Grid     *domain.GridCell     `json:"grid,omitempty"`
	Observed *Observation         `json:"observed,omitempty"`
	Metrics  *FeelsMetrics        `json:"metrics,omitempty"`
	Hazards  *feels.Hazards       `json:"hazards,omitempty"`
	Risk     *feels.Risk          `json:"risk,omitempty"`
	Cache    *domain.CacheMeta    `json:"cache,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// FeelsService answers feels-like queries for free-text region names.
type FeelsService struct {
	resolver *resolver.Resolver
	orch     *retrieval.Orchestrator
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	batchOpts retrieval.BatchOptions
}

// New creates a FeelsService.
func New(res *resolver.Resolver, orch *retrieval.Orchestrator, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, batchOpts retrieval.BatchOptions) *FeelsService {
	return &FeelsService{
		resolver:  res,
		orch:      orch,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		batchOpts: batchOpts,
	}
}

// Report resolves region and computes its current feels-like report. areaNo
// optionally names the administrative area for the living-index bulletin; in
// season it overrides the regression formula.
func (s *FeelsService) Report(ctx context.Context, region, areaNo string) (FeelsReport, error) {
	report := FeelsReport{Region: region, Resolve: s.resolve(region)}
	if !report.Resolve.Resolved {
		return report, ErrUnresolved
	}

	cell := report.Resolve.Cell
	report.Grid = &cell

	data, meta, err := s.orch.Get(ctx, domain.HourlyNowcast, retrieval.Subject{Cell: &cell})
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	if err := s.fill(ctx, &report, data, meta, areaNo); err != nil {
		report.Error = err.Error()
		return report, err
	}
	return report, nil
}

// Batch computes reports for several regions with one bounded fetch pool.
// Results are in input order; unresolved and failed regions keep their slot.
func (s *FeelsService) Batch(ctx context.Context, regions []string) []FeelsReport {
	reports := make([]FeelsReport, len(regions))

	var items []retrieval.BatchItem
	var itemIdx []int
	for i, region := range regions {
		reports[i] = FeelsReport{Region: region, Resolve: s.resolve(region)}
		if !reports[i].Resolve.Resolved {
			reports[i].Error = ErrUnresolved.Error()
			continue
		}
		cell := reports[i].Resolve.Cell
		reports[i].Grid = &cell
		items = append(items, retrieval.BatchItem{
			Product: domain.HourlyNowcast,
			Subject: retrieval.Subject{Cell: &cell},
		})
		itemIdx = append(itemIdx, i)
	}

	results := s.orch.GetBatch(ctx, items, s.batchOpts)
	for j, result := range results {
		i := itemIdx[j]
		if result.Err != nil {
			reports[i].Error = result.Err.Error()
			continue
		}
		if err := s.fill(ctx, &reports[i], result.Data, result.Meta, ""); err != nil {
			reports[i].Error = err.Error()
		}
	}
	return reports
}

func (s *FeelsService) resolve(region string) domain.ResolveResult {
	res := s.resolver.Resolve(region)
	if res.Resolved {
		s.metrics.ResolveRequests.WithLabelValues("resolved", string(res.Method)).Inc()
	} else {
		s.metrics.ResolveRequests.WithLabelValues("unresolved", string(res.Reason)).Inc()
	}
	return res
}

// fill turns a cached nowcast payload into the report's observation, metrics,
// hazards, and risk blocks.
func (s *FeelsService) fill(ctx context.Context, report *FeelsReport, data json.RawMessage, meta domain.CacheMeta, areaNo string) error {
	var items []domain.ForecastItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode nowcast payload: %w", err)
	}

	obs := observationFrom(items)
	report.Observed = &obs
	report.Cache = &meta

	now := s.clock.Now()
	metrics := s.computeMetrics(ctx, obs, areaNo, now)
	report.Metrics = &metrics

	hazards := feels.Hazards{}
	if obs.WindSpeed != nil {
		hazards.WindRisk = feels.WindHazard(*obs.WindSpeed)
	}
	report.Hazards = &hazards

	risk := feels.ComputeRisk(metrics.ApparentTemperature, hazards, "")
	report.Risk = &risk
	report.OK = true
	return nil
}

func (s *FeelsService) computeMetrics(ctx context.Context, obs Observation, areaNo string, now time.Time) FeelsMetrics {
	if !feels.IsSummerSeason(now) {
		if obs.Temperature == nil {
			return FeelsMetrics{}
		}
		wind := 0.0
		if obs.WindSpeed != nil {
			wind = *obs.WindSpeed
		}
		apparent := feels.WindChill(*obs.Temperature, wind)
		return s.withLevel(apparent, sourceWindChill)
	}

	// In season the official living-index bulletin wins when available.
	if areaNo != "" {
		if apparent, ok := s.livingIndexApparent(ctx, areaNo, now); ok {
			return s.withLevel(apparent, sourceLiving)
		}
	}
	if obs.Temperature == nil || obs.Humidity == nil {
		return FeelsMetrics{}
	}
	return s.withLevel(feels.PerceivedTemp(*obs.Temperature, *obs.Humidity), sourceFormula)
}

func (s *FeelsService) withLevel(apparent float64, source string) FeelsMetrics {
	level := feels.Level(apparent)
	return FeelsMetrics{
		ApparentTemperature: &apparent,
		Level:               level,
		Source:              source,
		Action:              feels.Action(level, apparent),
	}
}

// livingIndexApparent fetches the bulletin for areaNo and picks the hourly
// value nearest in the future. Any failure falls back to the regression
// formula; the bulletin is an upgrade, not a dependency.
func (s *FeelsService) livingIndexApparent(ctx context.Context, areaNo string, now time.Time) (float64, bool) {
	data, _, err := s.orch.Get(ctx, domain.TenMinuteBulletin, retrieval.Subject{AreaNo: areaNo})
	if err != nil {
		s.logger.Warn("living index unavailable, using formula", "area_no", areaNo, "error", err)
		return 0, false
	}

	var rows []kma.LivingItem
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return 0, false
	}

	series := feels.BuildSenTaSeries(rows[0], "")
	point, ok := feels.PickNearestFuture(series, now)
	if !ok {
		return 0, false
	}
	return point.Value, true
}

// observationFrom extracts temperature, humidity, and wind speed from
// nowcast rows, dropping missing-value sentinels.
func observationFrom(items []domain.ForecastItem) Observation {
	var obs Observation
	for _, it := range items {
		if obs.BaseDate == "" {
			obs.BaseDate, obs.BaseTime = it.BaseDate, it.BaseTime
		}
		v, err := domain.NumberOrNaN(it.ObsrValue)
		if err != nil {
			continue
		}
		switch it.Category {
		case "T1H":
			obs.Temperature = &v
		case "REH":
			obs.Humidity = &v
		case "WSD":
			obs.WindSpeed = &v
		}
	}
	return obs
}
