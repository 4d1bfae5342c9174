package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	forecastPath = "/v1/forecast"

	// Open-Meteo accepts between 1 and 16 forecast days.
	minLookaheadDays = 1
	maxLookaheadDays = 16

	hourlyTimeLayout = "2006-01-02T15:04"
)

// FailureReason categorises provider fetch failures for the caller's retry
// policy. The client itself never retries.
type FailureReason string

const (
	ReasonNetwork       FailureReason = "network"
	ReasonTimeout       FailureReason = "timeout"
	ReasonStatus        FailureReason = "status"
	ReasonDecode        FailureReason = "decode"
	ReasonMissingSeries FailureReason = "missing_series"
)

// FetchError wraps a provider failure with its reason code.
type FetchError struct {
	Reason FailureReason
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("weather fetch failed (%s): %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options parameterise the Open-Meteo client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Timezone  string
}

// Client fetches hourly forecasts from the Open-Meteo API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs an Open-Meteo forecast client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "weather_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Fetch retrieves hourly observations covering [now, now+lookaheadDays].
// Every timestamp in the returned series is expressed in the fixed zone the
// provider reports, so callers never compare mixed representations.
func (c *Client) Fetch(ctx context.Context, loc Location, lookaheadDays int) ([]Observation, error) {
	if lookaheadDays < minLookaheadDays || lookaheadDays > maxLookaheadDays {
		return nil, &FetchError{
			Reason: ReasonDecode,
			Err:    fmt.Errorf("lookahead_days %d out of range [%d, %d]", lookaheadDays, minLookaheadDays, maxLookaheadDays),
		}
	}
	if err := loc.Validate(); err != nil {
		return nil, &FetchError{Reason: ReasonDecode, Err: err}
	}

	hourly := make([]string, 0, len(RequestedFromProvider))
	for _, name := range RequestedFromProvider {
		hourly = append(hourly, providerVariables[name])
	}

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.5f", loc.Latitude))
	query.Set("longitude", fmt.Sprintf("%.5f", loc.Longitude))
	query.Set("hourly", strings.Join(hourly, ","))
	query.Set("forecast_days", fmt.Sprintf("%d", lookaheadDays))
	timezone := c.opts.Timezone
	if timezone == "" {
		timezone = "auto"
	}
	query.Set("timezone", timezone)

	endpoint := c.baseURL + forecastPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Reason: ReasonNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "frostwatcher/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Reason: classifyTransportError(err), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Reason: classifyTransportError(err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Reason: ReasonStatus, Err: parseAPIError(resp.StatusCode, payload)}
	}

	var body forecastResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, &FetchError{Reason: ReasonDecode, Err: fmt.Errorf("decode forecast payload: %w", err)}
	}

	if body.Hourly == nil || len(body.Hourly.Time) == 0 {
		return nil, &FetchError{Reason: ReasonMissingSeries, Err: errors.New("response missing hourly time series")}
	}

	observations, err := body.toObservations(c.logger)
	if err != nil {
		return nil, &FetchError{Reason: ReasonDecode, Err: err}
	}

	c.logger.Debug().
		Int("hours", len(observations)).
		Str("provider_tz", body.TimezoneName).
		Int("utc_offset_seconds", body.UTCOffsetSeconds).
		Msg("hourly forecast fetched")

	return observations, nil
}

func classifyTransportError(err error) FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetwork
}

type forecastResponse struct {
	TimezoneName     string       `json:"timezone"`
	UTCOffsetSeconds int          `json:"utc_offset_seconds"`
	Hourly           *hourlyBlock `json:"hourly"`
}

// hourlyBlock mirrors the provider payload: a time array plus one equal-length
// array per requested variable. Pointer elements capture JSON nulls.
type hourlyBlock struct {
	Time             []string   `json:"time"`
	Temperature      []*float64 `json:"temperature_2m"`
	RelativeHumidity []*float64 `json:"relativehumidity_2m"`
	SurfacePressure  []*float64 `json:"surface_pressure"`
	Precipitation    []*float64 `json:"precipitation"`
	SoilMoisture     []*float64 `json:"soil_moisture_0_to_7cm"`
}

func (r *forecastResponse) toObservations(logger zerolog.Logger) ([]Observation, error) {
	block := r.Hourly
	count := len(block.Time)

	zone := time.UTC
	if r.UTCOffsetSeconds != 0 || r.TimezoneName != "" {
		name := r.TimezoneName
		if name == "" {
			name = fmt.Sprintf("UTC%+d", r.UTCOffsetSeconds/3600)
		}
		zone = time.FixedZone(name, r.UTCOffsetSeconds)
	}

	temperature := alignSeries(block.Temperature, count, providerVariables[VarTemperature], logger)
	humidity := alignSeries(block.RelativeHumidity, count, providerVariables[VarRelativeHumidity], logger)
	pressure := alignSeries(block.SurfacePressure, count, providerVariables[VarSurfacePressure], logger)
	precipitation := alignSeries(block.Precipitation, count, providerVariables[VarPrecipitation], logger)
	soilMoisture := alignSeries(block.SoilMoisture, count, providerVariables[VarSoilMoisture], logger)

	observations := make([]Observation, 0, count)
	for i := 0; i < count; i++ {
		ts, err := time.ParseInLocation(hourlyTimeLayout, block.Time[i], zone)
		if err != nil {
			return nil, fmt.Errorf("parse hourly timestamp %q: %w", block.Time[i], err)
		}

		obs := Observation{
			Timestamp:        ts,
			Temperature:      temperature[i],
			RelativeHumidity: humidity[i],
			SurfacePressure:  pressure[i],
			SoilMoisture:     soilMoisture[i],
		}
		if precipitation[i] != nil {
			obs.Precipitation = *precipitation[i]
		}
		observations = append(observations, obs)
	}

	return observations, nil
}

// alignSeries pads a variable series to the time axis. A missing or
// short series yields nil entries rather than zero values.
func alignSeries(series []*float64, count int, name string, logger zerolog.Logger) []*float64 {
	if len(series) == count {
		return series
	}
	if series != nil {
		logger.Warn().Str("variable", name).
			Int("got", len(series)).Int("want", count).
			Msg("provider series length mismatch; treating variable as absent")
	}
	return make([]*float64, count)
}

type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func parseAPIError(status int, payload []byte) error {
	var body apiError
	if err := json.Unmarshal(payload, &body); err == nil && body.Reason != "" {
		return fmt.Errorf("open-meteo error (%d): %s", status, body.Reason)
	}
	if len(payload) > 0 {
		return fmt.Errorf("open-meteo error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("open-meteo error (%d)", status)
}

var _ ForecastFetcher = (*Client)(nil)
