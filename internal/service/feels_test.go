package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/feelslike-weather-service/internal/cache"
	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/couchcryptid/feelslike-weather-service/internal/feels"
	"github.com/couchcryptid/feelslike-weather-service/internal/observability"
	"github.com/couchcryptid/feelslike-weather-service/internal/resolver"
	"github.com/couchcryptid/feelslike-weather-service/internal/retrieval"
)

var kst = time.FixedZone("KST", 9*60*60)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type upstreamFunc func(ctx context.Context, product domain.Product, subject retrieval.Subject, base domain.BaseTime) (json.RawMessage, error)

func (f upstreamFunc) FetchProduct(ctx context.Context, product domain.Product, subject retrieval.Subject, base domain.BaseTime) (json.RawMessage, error) {
	return f(ctx, product, subject, base)
}

func testResolver() *resolver.Resolver {
	tables := resolver.NewTables(map[string]domain.GridCell{
		"서울특별시 강남구 역삼1동": {NX: 61, NY: 126},
		"대전광역시 대덕구 회덕동":  {NX: 68, NY: 101},
	}, nil, nil, nil, nil)
	return resolver.New(tables)
}

func nowcastPayload(temp, humidity, wind string) json.RawMessage {
	items := []domain.ForecastItem{
		{BaseDate: "20260714", BaseTime: "1200", Category: "T1H", ObsrValue: temp},
		{BaseDate: "20260714", BaseTime: "1200", Category: "REH", ObsrValue: humidity},
		{BaseDate: "20260714", BaseTime: "1200", Category: "WSD", ObsrValue: wind},
	}
	b, _ := json.Marshal(items)
	return b
}

func newService(clock clockwork.Clock, upstream retrieval.Upstream) *FeelsService {
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	store := cache.New(nil, logger, clock)
	orch := retrieval.New(upstream, store, clock, logger, metrics)
	return New(testResolver(), orch, clock, logger, metrics, retrieval.BatchOptions{Concurrency: 2})
}

func TestReport_SummerUsesPerceivedTemp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 14, 12, 30, 0, 0, kst))
	svc := newService(clock, upstreamFunc(func(_ context.Context, product domain.Product, subject retrieval.Subject, _ domain.BaseTime) (json.RawMessage, error) {
		require.Equal(t, domain.HourlyNowcast, product)
		assert.Equal(t, &domain.GridCell{NX: 61, NY: 126}, subject.Cell)
		return nowcastPayload("33", "60", "3.2"), nil
	}))

	report, err := svc.Report(context.Background(), "역삼1동", "")
	require.NoError(t, err)

	assert.True(t, report.OK)
	assert.Equal(t, &domain.GridCell{NX: 61, NY: 126}, report.Grid)
	require.NotNil(t, report.Metrics.ApparentTemperature)
	assert.InDelta(t, 33.5, *report.Metrics.ApparentTemperature, 0.05)
	assert.Equal(t, "kma2016", report.Metrics.Source)
	assert.Equal(t, feels.LevelNotice, report.Metrics.Level)
	assert.Contains(t, report.Metrics.Action, "법정기준")
	require.NotNil(t, report.Risk)
	assert.Equal(t, 50, report.Risk.Score)
	require.NotNil(t, report.Hazards.WindRisk)
	assert.False(t, *report.Hazards.WindRisk)
	assert.False(t, report.Cache.Hit)
}

func TestReport_WinterUsesWindChill(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 14, 12, 30, 0, 0, kst))
	svc := newService(clock, upstreamFunc(func(context.Context, domain.Product, retrieval.Subject, domain.BaseTime) (json.RawMessage, error) {
		return nowcastPayload("-5", "40", "5"), nil
	}))

	report, err := svc.Report(context.Background(), "역삼1동", "")
	require.NoError(t, err)

	require.NotNil(t, report.Metrics.ApparentTemperature)
	assert.InDelta(t, -11.2, *report.Metrics.ApparentTemperature, 0.05)
	assert.Equal(t, "wind-chill", report.Metrics.Source)
	assert.Equal(t, 40, report.Risk.Score, "severe cold scores medium risk")
}

func TestReport_SummerPrefersLivingIndex(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 14, 12, 30, 0, 0, kst))
	svc := newService(clock, upstreamFunc(func(_ context.Context, product domain.Product, subject retrieval.Subject, _ domain.BaseTime) (json.RawMessage, error) {
		if product == domain.TenMinuteBulletin {
			assert.Equal(t, "1100000000", subject.AreaNo)
			return json.RawMessage(`[{"date":"2026071412","h1":"35.4","h2":"36.0"}]`), nil
		}
		return nowcastPayload("33", "60", "2"), nil
	}))

	report, err := svc.Report(context.Background(), "역삼1동", "1100000000")
	require.NoError(t, err)

	require.NotNil(t, report.Metrics.ApparentTemperature)
	assert.Equal(t, 35.4, *report.Metrics.ApparentTemperature)
	assert.Equal(t, "living-index", report.Metrics.Source)
	assert.Equal(t, feels.LevelCaution, report.Metrics.Level)
}

func TestReport_LivingIndexFailureFallsBackToFormula(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 14, 12, 30, 0, 0, kst))
	svc := newService(clock, upstreamFunc(func(_ context.Context, product domain.Product, _ retrieval.Subject, _ domain.BaseTime) (json.RawMessage, error) {
		if product == domain.TenMinuteBulletin {
			return nil, domain.ErrUpstreamTimeout
		}
		return nowcastPayload("33", "60", "2"), nil
	}))

	report, err := svc.Report(context.Background(), "역삼1동", "1100000000")
	require.NoError(t, err)
	assert.Equal(t, "kma2016", report.Metrics.Source)
}

func TestReport_Unresolved(t *testing.T) {
	svc := newService(clockwork.NewFakeClock(), upstreamFunc(func(context.Context, domain.Product, retrieval.Subject, domain.BaseTime) (json.RawMessage, error) {
		t.Fatal("upstream must not be called for unresolved regions")
		return nil, nil
	}))

	report, err := svc.Report(context.Background(), "어디에도없는동", "")
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.False(t, report.OK)
	assert.False(t, report.Resolve.Resolved)
	assert.Equal(t, domain.ReasonNotFound, report.Resolve.Reason)
}

func TestReport_UpstreamDownNoFallback(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 14, 12, 30, 0, 0, kst))
	svc := newService(clock, upstreamFunc(func(context.Context, domain.Product, retrieval.Subject, domain.BaseTime) (json.RawMessage, error) {
		return nil, domain.ErrUpstreamTimeout
	}))

	report, err := svc.Report(context.Background(), "역삼1동", "")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.False(t, report.OK)
	assert.NotEmpty(t, report.Error)
}

func TestReport_MissingObservationYieldsNoApparent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 14, 12, 30, 0, 0, kst))
	svc := newService(clock, upstreamFunc(func(context.Context, domain.Product, retrieval.Subject, domain.BaseTime) (json.RawMessage, error) {
		return nowcastPayload("-999", "60", "2"), nil
	}))

	report, err := svc.Report(context.Background(), "역삼1동", "")
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Nil(t, report.Metrics.ApparentTemperature)
	assert.Equal(t, 0, report.Risk.Score)
}

func TestBatch_MixedOutcomesKeepOrder(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 14, 12, 30, 0, 0, kst))
	svc := newService(clock, upstreamFunc(func(_ context.Context, _ domain.Product, subject retrieval.Subject, _ domain.BaseTime) (json.RawMessage, error) {
		if subject.Cell.NX == 68 {
			return nil, domain.ErrUpstreamTimeout
		}
		return nowcastPayload("33", "60", "2"), nil
	}))

	reports := svc.Batch(context.Background(), []string{"역삼1동", "없는곳", "회덕동"})
	require.Len(t, reports, 3)

	assert.True(t, reports[0].OK)
	assert.Equal(t, "역삼1동", reports[0].Region)

	assert.False(t, reports[1].OK)
	assert.Equal(t, ErrUnresolved.Error(), reports[1].Error)
	assert.False(t, reports[1].Resolve.Resolved)

	assert.False(t, reports[2].OK)
	assert.NotEmpty(t, reports[2].Error)
	assert.Equal(t, &domain.GridCell{NX: 68, NY: 101}, reports[2].Grid)
}

func TestBatch_Empty(t *testing.T) {
	svc := newService(clockwork.NewFakeClock(), upstreamFunc(func(context.Context, domain.Product, retrieval.Subject, domain.BaseTime) (json.RawMessage, error) {
		t.Fatal("upstream must not be called")
		return nil, nil
	}))

	assert.Empty(t, svc.Batch(context.Background(), nil))
}
