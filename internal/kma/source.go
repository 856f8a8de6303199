package kma

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/couchcryptid/feelslike-weather-service/internal/retrieval"
)

// Source adapts Client to the retrieval orchestrator: it dispatches a
// product request to the right endpoint and serializes the item list for
// caching.
type Source struct {
	client *Client
}

// NewSource wraps a Client for use as a retrieval upstream.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// FetchProduct implements retrieval.Upstream.
func (s *Source) FetchProduct(ctx context.Context, product domain.Product, subject retrieval.Subject, base domain.BaseTime) (json.RawMessage, error) {
	switch product {
	case domain.ShortTermGrid:
		if subject.Cell == nil {
			return nil, fmt.Errorf("%s requires a grid cell", product)
		}
		_, items, err := s.client.VilageFcstComplete(ctx, base, *subject.Cell)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)

	case domain.HourlyNowcast:
		if subject.Cell == nil {
			return nil, fmt.Errorf("%s requires a grid cell", product)
		}
		items, err := s.client.UltraSrtNcst(ctx, base, *subject.Cell)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)

	case domain.TenMinuteBulletin:
		if subject.AreaNo == "" {
			return nil, fmt.Errorf("%s requires an area number", product)
		}
		if len(base.Time) < 2 {
			return nil, fmt.Errorf("malformed base time %q", base.Time)
		}
		rows, err := s.client.SenTaIdx(ctx, subject.AreaNo, base.Date+base.Time[:2])
		if err != nil {
			return nil, err
		}
		return json.Marshal(rows)
	}
	return nil, fmt.Errorf("unknown product %q", product)
}
