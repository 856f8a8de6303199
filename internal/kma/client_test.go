package kma

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type getterFunc func(ctx context.Context, url string) ([]byte, error)

func (f getterFunc) Get(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

func forecastBody(code string, items ...string) []byte {
	return []byte(fmt.Sprintf(
		`{"response":{"header":{"resultCode":%q,"resultMsg":"msg"},"body":{"items":{"item":[%s]}}}}`,
		code, strings.Join(items, ",")))
}

func fcstRow(category, fcstDate, fcstTime, value string) string {
	return fmt.Sprintf(
		`{"baseDate":"20260714","baseTime":"0500","category":%q,"fcstDate":%q,"fcstTime":%q,"fcstValue":%q,"nx":61,"ny":126}`,
		category, fcstDate, fcstTime, value)
}

func TestNormalizeServiceKey(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"raw key gets encoded", "abc+def==", "abc%2Bdef%3D%3D"},
		{"encoded key passes through", "abc%2Bdef%3D%3D", "abc%2Bdef%3D%3D"},
		{"surrounding quotes stripped", `"abc+def=="`, "abc%2Bdef%3D%3D"},
		{"single quotes stripped", "'plainkey'", "plainkey"},
		{"whitespace trimmed", "  plainkey\n", "plainkey"},
		{"empty", "", ""},
		{"only quotes", `""`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeServiceKey(tc.in))
		})
	}
}

func TestVilageFcst_BuildsRequestAndParses(t *testing.T) {
	var gotURL string
	getter := getterFunc(func(_ context.Context, u string) ([]byte, error) {
		gotURL = u
		return forecastBody("00", fcstRow("TMP", "20260714", "0600", "28.5")), nil
	})

	c := NewClient("abc+def", "https", getter, discardLogger())

	items, err := c.VilageFcst(context.Background(),
		domain.BaseTime{Date: "20260714", Time: "0500"}, domain.GridCell{NX: 61, NY: 126})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "TMP", items[0].Category)
	assert.Equal(t, "28.5", items[0].FcstValue)

	u, err := url.Parse(gotURL)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "apis.data.go.kr", u.Host)
	assert.Equal(t, "/1360000/VilageFcstInfoService_2.0/getVilageFcst", u.Path)

	q := u.Query()
	assert.Equal(t, "abc+def", q.Get("serviceKey"), "key decodes back to the raw form")
	assert.Equal(t, "JSON", q.Get("dataType"))
	assert.Equal(t, "20260714", q.Get("base_date"))
	assert.Equal(t, "0500", q.Get("base_time"))
	assert.Equal(t, "61", q.Get("nx"))
	assert.Equal(t, "126", q.Get("ny"))
}

func TestVilageFcst_UpstreamErrorCode(t *testing.T) {
	getter := getterFunc(func(context.Context, string) ([]byte, error) {
		return []byte(`{"response":{"header":{"resultCode":"30","resultMsg":"SERVICE_KEY_IS_NOT_REGISTERED_ERROR"}}}`), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	_, err := c.VilageFcst(context.Background(),
		domain.BaseTime{Date: "20260714", Time: "0500"}, domain.GridCell{NX: 61, NY: 126})

	var apiErr *domain.UpstreamAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "30", apiErr.Code)
	assert.Contains(t, apiErr.Message, "SERVICE_KEY")
}

func TestVilageFcst_MalformedBody(t *testing.T) {
	getter := getterFunc(func(context.Context, string) ([]byte, error) {
		return []byte(`<html>gateway error</html>`), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	_, err := c.VilageFcst(context.Background(),
		domain.BaseTime{Date: "20260714", Time: "0500"}, domain.GridCell{NX: 61, NY: 126})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestUltraSrtNcst_Parses(t *testing.T) {
	var gotURL string
	getter := getterFunc(func(_ context.Context, u string) ([]byte, error) {
		gotURL = u
		return []byte(`{"response":{"header":{"resultCode":"00","resultMsg":"OK"},"body":{"items":{"item":[
			{"baseDate":"20260714","baseTime":"0900","category":"T1H","obsrValue":"29.1","nx":61,"ny":126},
			{"baseDate":"20260714","baseTime":"0900","category":"REH","obsrValue":"62","nx":61,"ny":126}
		]}}}}`), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	items, err := c.UltraSrtNcst(context.Background(),
		domain.BaseTime{Date: "20260714", Time: "0900"}, domain.GridCell{NX: 61, NY: 126})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "29.1", items[0].ObsrValue)

	u, err := url.Parse(gotURL)
	require.NoError(t, err)
	assert.Equal(t, "/1360000/VilageFcstInfoService_2.0/getUltraSrtNcst", u.Path)
}

func TestSenTaIdx_AcceptsBothSuccessCodes(t *testing.T) {
	for _, code := range []string{"00", "0"} {
		t.Run(code, func(t *testing.T) {
			getter := getterFunc(func(_ context.Context, u string) ([]byte, error) {
				parsed, err := url.Parse(u)
				require.NoError(t, err)
				q := parsed.Query()
				assert.Equal(t, "1100000000", q.Get("areaNo"))
				assert.Equal(t, "2026071409", q.Get("time"))
				assert.Equal(t, "A41", q.Get("requestCode"))
				return []byte(fmt.Sprintf(
					`{"response":{"header":{"resultCode":%q,"resultMsg":"OK"},"body":{"items":{"item":[
						{"date":"20260714","areaNo":"1100000000","h1":"31.2","h2":"32.0"}
					]}}}}`, code)), nil
			})

			c := NewClient("k", "http", getter, discardLogger())

			items, err := c.SenTaIdx(context.Background(), "1100000000", "2026071409")
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "31.2", items[0]["h1"])
		})
	}
}

func TestSenTaIdx_ErrorCode(t *testing.T) {
	getter := getterFunc(func(context.Context, string) ([]byte, error) {
		return []byte(`{"response":{"header":{"resultCode":"03","resultMsg":"NODATA_ERROR"}}}`), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	_, err := c.SenTaIdx(context.Background(), "1100000000", "2026071409")
	var apiErr *domain.UpstreamAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "03", apiErr.Code)
}

// completeIssue emits rows for n timestamps, each with a TMP and an REH value.
func completeIssue(n int) []string {
	rows := make([]string, 0, 2*n)
	for i := range n {
		ts := fmt.Sprintf("%02d00", 6+i)
		rows = append(rows, fcstRow("TMP", "20260714", ts, "28.0"), fcstRow("REH", "20260714", ts, "60"))
	}
	return rows
}

func TestVilageFcstComplete_FirstIssueComplete(t *testing.T) {
	var calls int
	getter := getterFunc(func(context.Context, string) ([]byte, error) {
		calls++
		return forecastBody("00", completeIssue(12)...), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	base := domain.BaseTime{Date: "20260714", Time: "0500"}
	got, items, err := c.VilageFcstComplete(context.Background(), base, domain.GridCell{NX: 61, NY: 126})
	require.NoError(t, err)
	assert.Equal(t, base, got)
	assert.Len(t, items, 24)
	assert.Equal(t, 1, calls, "complete issue must not trigger a fallback call")
}

func TestVilageFcstComplete_FallsBackToPreviousIssue(t *testing.T) {
	var baseTimes []string
	getter := getterFunc(func(_ context.Context, u string) ([]byte, error) {
		parsed, _ := url.Parse(u)
		bt := parsed.Query().Get("base_time")
		baseTimes = append(baseTimes, bt)
		if bt == "0500" {
			// Partially published: only three complete timestamps.
			return forecastBody("00", completeIssue(3)...), nil
		}
		return forecastBody("00", completeIssue(12)...), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	got, items, err := c.VilageFcstComplete(context.Background(),
		domain.BaseTime{Date: "20260714", Time: "0500"}, domain.GridCell{NX: 61, NY: 126})
	require.NoError(t, err)
	assert.Equal(t, domain.BaseTime{Date: "20260714", Time: "0200"}, got)
	assert.Len(t, items, 24)
	assert.Equal(t, []string{"0500", "0200"}, baseTimes)
}

func TestVilageFcstComplete_MidnightFallbackCrossesDay(t *testing.T) {
	var dates []string
	getter := getterFunc(func(_ context.Context, u string) ([]byte, error) {
		parsed, _ := url.Parse(u)
		dates = append(dates, parsed.Query().Get("base_date")+parsed.Query().Get("base_time"))
		return forecastBody("00"), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	got, _, err := c.VilageFcstComplete(context.Background(),
		domain.BaseTime{Date: "20260714", Time: "0200"}, domain.GridCell{NX: 61, NY: 126})
	require.NoError(t, err)
	assert.Equal(t, []string{"202607140200", "202607132300"}, dates)
	// Both empty: the scheduled issue is still the answer.
	assert.Equal(t, domain.BaseTime{Date: "20260714", Time: "0200"}, got)
}

func TestVilageFcstComplete_BothIncompleteServesFirst(t *testing.T) {
	getter := getterFunc(func(context.Context, string) ([]byte, error) {
		return forecastBody("00", completeIssue(2)...), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	base := domain.BaseTime{Date: "20260714", Time: "1400"}
	got, items, err := c.VilageFcstComplete(context.Background(), base, domain.GridCell{NX: 61, NY: 126})
	require.NoError(t, err)
	assert.Equal(t, base, got)
	assert.Len(t, items, 4)
}

func TestVilageFcstComplete_FirstErrorsPreviousServes(t *testing.T) {
	getter := getterFunc(func(_ context.Context, u string) ([]byte, error) {
		parsed, _ := url.Parse(u)
		if parsed.Query().Get("base_time") == "1400" {
			return []byte(`{"response":{"header":{"resultCode":"30","resultMsg":"nope"}}}`), nil
		}
		return forecastBody("00", completeIssue(12)...), nil
	})

	c := NewClient("k", "http", getter, discardLogger())

	got, items, err := c.VilageFcstComplete(context.Background(),
		domain.BaseTime{Date: "20260714", Time: "1400"}, domain.GridCell{NX: 61, NY: 126})
	require.NoError(t, err)
	assert.Equal(t, domain.BaseTime{Date: "20260714", Time: "1100"}, got)
	assert.Len(t, items, 24)
}

func TestCompleteTimestamps(t *testing.T) {
	items := []domain.ForecastItem{
		{Category: "TMP", FcstDate: "20260714", FcstTime: "0600", FcstValue: "28.0"},
		{Category: "REH", FcstDate: "20260714", FcstTime: "0600", FcstValue: "60"},
		// Humidity missing sentinel: does not complete the 0700 stamp.
		{Category: "TMP", FcstDate: "20260714", FcstTime: "0700", FcstValue: "27.0"},
		{Category: "REH", FcstDate: "20260714", FcstTime: "0700", FcstValue: "-999"},
		// Temperature only.
		{Category: "TMP", FcstDate: "20260714", FcstTime: "0800", FcstValue: "27.5"},
		// Unrelated category never counts.
		{Category: "SKY", FcstDate: "20260714", FcstTime: "0900", FcstValue: "1"},
	}
	assert.Equal(t, 1, completeTimestamps(items))
}
