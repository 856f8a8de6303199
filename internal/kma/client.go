// Package kma is the client for the KMA OpenAPI product family: the
// short-term grid forecast, the hourly nowcast, and the living-index
// bulletins. It owns URL building, service-key normalization, and envelope
// validation; resilience lives in the fetch package underneath.
package kma

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

const (
	forecastService = "VilageFcstInfoService_2.0"
	livingService   = "LivingWthrIdxServiceV4"

	// senTaRequestCode selects the perceived-temperature index among the
	// living-index products.
	senTaRequestCode = "A41"

	// minCompleteRows is the completeness bar for a short-term grid issue:
	// fewer timestamps with both temperature and humidity means the issue
	// is still being published and the previous one is more useful.
	minCompleteRows = 12
)

// Getter is the resilient HTTP layer the client runs on.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client calls the KMA OpenAPI endpoints.
type Client struct {
	baseURL    string
	serviceKey string
	getter     Getter
	logger     *slog.Logger
}

// NewClient creates a KMA client. scheme is "http" or "https"; some corp
// networks only pass the former. The service key may arrive quoted or
// pre-encoded and is normalized here once.
func NewClient(serviceKey, scheme string, getter Getter, logger *slog.Logger) *Client {
	if scheme == "" {
		scheme = "http"
	}
	return &Client{
		baseURL:    scheme + "://apis.data.go.kr/1360000",
		serviceKey: NormalizeServiceKey(serviceKey),
		getter:     getter,
		logger:     logger,
	}
}

// VilageFcst fetches one short-term grid forecast issue.
func (c *Client) VilageFcst(ctx context.Context, base domain.BaseTime, cell domain.GridCell) ([]domain.ForecastItem, error) {
	params := url.Values{
		"dataType":  {"JSON"},
		"numOfRows": {"1000"},
		"pageNo":    {"1"},
		"base_date": {base.Date},
		"base_time": {base.Time},
		"nx":        {strconv.Itoa(cell.NX)},
		"ny":        {strconv.Itoa(cell.NY)},
	}
	return c.fetchForecast(ctx, "getVilageFcst", params)
}

// UltraSrtNcst fetches the hourly nowcast observations for a grid cell.
func (c *Client) UltraSrtNcst(ctx context.Context, base domain.BaseTime, cell domain.GridCell) ([]domain.ForecastItem, error) {
	params := url.Values{
		"dataType":  {"JSON"},
		"numOfRows": {"60"},
		"pageNo":    {"1"},
		"base_date": {base.Date},
		"base_time": {base.Time},
		"nx":        {strconv.Itoa(cell.NX)},
		"ny":        {strconv.Itoa(cell.NY)},
	}
	return c.fetchForecast(ctx, "getUltraSrtNcst", params)
}

// SenTaIdx fetches the perceived-temperature living-index bulletin for an
// area. timeKST is YYYYMMDDHH.
func (c *Client) SenTaIdx(ctx context.Context, areaNo, timeKST string) ([]LivingItem, error) {
	params := url.Values{
		"dataType":    {"JSON"},
		"numOfRows":   {"10"},
		"pageNo":      {"1"},
		"areaNo":      {areaNo},
		"time":        {timeKST},
		"requestCode": {senTaRequestCode},
	}

	body, err := c.getter.Get(ctx, c.endpoint(livingService, "getSenTaIdxV4", params))
	if err != nil {
		return nil, err
	}

	var env livingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode living index response: %w", err)
	}
	// The living-index service reports success as "0" where the forecast
	// services use "00".
	if code := env.Response.Header.ResultCode; code != "00" && code != "0" {
		return nil, &domain.UpstreamAPIError{Code: code, Message: env.Response.Header.ResultMsg}
	}
	return env.Response.Body.Items.Item, nil
}

func (c *Client) fetchForecast(ctx context.Context, operation string, params url.Values) ([]domain.ForecastItem, error) {
	body, err := c.getter.Get(ctx, c.endpoint(forecastService, operation, params))
	if err != nil {
		return nil, err
	}

	var env forecastEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}
	if code := env.Response.Header.ResultCode; code != "00" {
		return nil, &domain.UpstreamAPIError{Code: code, Message: env.Response.Header.ResultMsg}
	}
	return env.Response.Body.Items.Item, nil
}

// endpoint assembles the request URL. The service key is appended verbatim:
// it is already URL-encoded by normalization, and encoding it again would
// corrupt it.
func (c *Client) endpoint(service, operation string, params url.Values) string {
	return fmt.Sprintf("%s/%s/%s?serviceKey=%s&%s",
		c.baseURL, service, operation, c.serviceKey, params.Encode())
}

// KMA response envelopes.

type forecastEnvelope struct {
	Response struct {
		Header envelopeHeader `json:"header"`
		Body   struct {
			Items struct {
				Item []domain.ForecastItem `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

type livingEnvelope struct {
	Response struct {
		Header envelopeHeader `json:"header"`
		Body   struct {
			Items struct {
				Item []LivingItem `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

type envelopeHeader struct {
	ResultCode string `json:"resultCode"`
	ResultMsg  string `json:"resultMsg"`
}

// LivingItem is one living-index row. Hourly values arrive as dynamic
// "h1".."h72" keys, so the row stays a loose map; the feels package turns it
// into a typed series.
type LivingItem map[string]any
