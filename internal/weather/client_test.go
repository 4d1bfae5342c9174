package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testClient(baseURL string) *Client {
	return NewClient(Options{BaseURL: baseURL, Timeout: time.Second, UserAgent: "test"}, noopLogger())
}

func TestFetchLookaheadOutOfRange(t *testing.T) {
	c := testClient("http://localhost")
	loc := Location{Latitude: -12.2, Longitude: -75.0}

	for _, days := range []int{0, 17, -3} {
		_, err := c.Fetch(context.Background(), loc, days)
		if err == nil {
			t.Fatalf("lookahead_days=%d 应返回错误", days)
		}
	}
}

func TestFetchInvalidCoordinates(t *testing.T) {
	c := testClient("http://localhost")
	if _, err := c.Fetch(context.Background(), Location{Latitude: 123}, 2); err == nil {
		t.Fatal("非法坐标应返回错误")
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": true, "reason": "invalid longitude"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), Location{Latitude: -12.2, Longitude: -75.0}, 2)
	if err == nil {
		t.Fatal("HTTP 400 应返回错误")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("应返回 *FetchError, 实际 %T", err)
	}
	if fetchErr.Reason != ReasonStatus {
		t.Fatalf("期望 reason=%s, 实际 %s", ReasonStatus, fetchErr.Reason)
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), Location{Latitude: -12.2, Longitude: -75.0}, 2)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Reason != ReasonDecode {
		t.Fatalf("畸形响应应返回 decode 失败, 实际 %v", err)
	}
}

func TestFetchMissingHourlySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"latitude": -12.2, "longitude": -75.0})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), Location{Latitude: -12.2, Longitude: -75.0}, 2)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Reason != ReasonMissingSeries {
		t.Fatalf("缺少 hourly 序列应返回 missing_series, 实际 %v", err)
	}
}

func TestFetchSuccessMapsVariables(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"timezone":           "America/Lima",
			"utc_offset_seconds": -18000,
			"hourly": map[string]any{
				"time":                   []string{"2024-06-14T01:00", "2024-06-14T02:00"},
				"temperature_2m":         []any{-1.5, nil},
				"relativehumidity_2m":    []any{80.0, 75.0},
				"surface_pressure":       []any{68900.0, 68850.0},
				"precipitation":          []any{2.0, 0.0},
				"soil_moisture_0_to_7cm": []any{nil, 0.21},
			},
		})
	}))
	defer srv.Close()

	observations, err := testClient(srv.URL).Fetch(context.Background(), Location{Latitude: -12.20892, Longitude: -75.07791}, 2)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(observations) != 2 {
		t.Fatalf("期望 2 条观测, 实际 %d", len(observations))
	}

	if got := gotQuery["forecast_days"]; len(got) != 1 || got[0] != "2" {
		t.Fatalf("forecast_days 参数不正确: %v", got)
	}
	if got := gotQuery["hourly"]; len(got) != 1 || got[0] != "temperature_2m,relativehumidity_2m,surface_pressure,precipitation,soil_moisture_0_to_7cm" {
		t.Fatalf("hourly 参数不正确: %v", got)
	}

	first := observations[0]
	if first.Temperature == nil || *first.Temperature != -1.5 {
		t.Fatalf("温度映射不正确: %#v", first.Temperature)
	}
	if first.SoilMoisture != nil {
		t.Fatal("首小时土壤湿度为 null, 应保持缺失而非补零")
	}
	if first.Precipitation != 2.0 {
		t.Fatalf("降水映射不正确: %v", first.Precipitation)
	}

	second := observations[1]
	if second.Temperature != nil {
		t.Fatal("第二小时温度为 null, 应保持缺失")
	}
	if second.SoilMoisture == nil || *second.SoilMoisture != 0.21 {
		t.Fatalf("土壤湿度映射不正确: %#v", second.SoilMoisture)
	}

	wantTS := time.Date(2024, 6, 14, 1, 0, 0, 0, time.FixedZone("America/Lima", -18000))
	if !first.Timestamp.Equal(wantTS) {
		t.Fatalf("时间戳应使用响应时区: got %v want %v", first.Timestamp, wantTS)
	}
	if _, offset := first.Timestamp.Zone(); offset != -18000 {
		t.Fatalf("时区偏移应为 -18000, 实际 %d", offset)
	}
}

func TestFetchMissingPrecipitationDefaultsToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"utc_offset_seconds": 0,
			"hourly": map[string]any{
				"time":                []string{"2024-06-14T01:00"},
				"temperature_2m":      []any{2.0},
				"relativehumidity_2m": []any{60.0},
				"surface_pressure":    []any{100000.0},
			},
		})
	}))
	defer srv.Close()

	observations, err := testClient(srv.URL).Fetch(context.Background(), Location{Latitude: -12.2, Longitude: -75.0}, 1)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if observations[0].Precipitation != 0 {
		t.Fatalf("缺失降水应默认为 0, 实际 %v", observations[0].Precipitation)
	}
	if observations[0].SoilMoisture != nil {
		t.Fatal("缺失土壤湿度序列应保持为 nil")
	}
}

func TestFetchSeriesLengthMismatchTreatedAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"utc_offset_seconds": 0,
			"hourly": map[string]any{
				"time":                []string{"2024-06-14T01:00", "2024-06-14T02:00"},
				"temperature_2m":      []any{2.0}, // shorter than time axis
				"relativehumidity_2m": []any{60.0, 61.0},
				"surface_pressure":    []any{100000.0, 100100.0},
			},
		})
	}))
	defer srv.Close()

	observations, err := testClient(srv.URL).Fetch(context.Background(), Location{Latitude: -12.2, Longitude: -75.0}, 1)
	if err != nil {
		t.Fatalf("长度不齐不应整体失败: %v", err)
	}
	if observations[0].Temperature != nil || observations[1].Temperature != nil {
		t.Fatal("长度不齐的变量应整体视为缺失")
	}
}

func TestValidateVariableSets(t *testing.T) {
	if err := ValidateVariableSets(); err != nil {
		t.Fatalf("内置变量集合应通过校验: %v", err)
	}
}
