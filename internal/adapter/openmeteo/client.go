// Package openmeteo supplies weather series from the Open-Meteo forecast
// API: a configured historical lookback concatenated with the forecast
// horizon, as one contiguous hourly sequence.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/observability"
)

// SeriesSupplier fetches a validated Series for a coordinate pair.
// Implementations do not retry; backoff policy belongs to the caller's
// infrastructure, and failures surface as UpstreamDataError.
type SeriesSupplier interface {
	FetchSeries(ctx context.Context, lat, lon float64) (*domain.Series, error)
}

// Client implements SeriesSupplier against the Open-Meteo forecast API.
type Client struct {
	baseURL      string
	pastDays     int
	forecastDays int
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewClient creates an Open-Meteo client requesting pastDays of history plus
// forecastDays of horizon for every fetch.
func NewClient(baseURL string, pastDays, forecastDays int, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:      baseURL,
		pastDays:     pastDays,
		forecastDays: forecastDays,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		metrics:      metrics,
	}
}

// hourlyTimeLayout is Open-Meteo's timestamp format with timezone=UTC.
const hourlyTimeLayout = "2006-01-02T15:04"

type response struct {
	Hourly map[string]json.RawMessage `json:"hourly"`
}

// FetchSeries requests the hourly parameter sweep and assembles a Series.
// Any transport, decode, or cadence problem wraps as UpstreamDataError.
func (c *Client) FetchSeries(ctx context.Context, lat, lon float64) (*domain.Series, error) {
	params := url.Values{
		"latitude":      {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":     {strconv.FormatFloat(lon, 'f', 4, 64)},
		"hourly":        {strings.Join(domain.BaseParameters, ",")},
		"past_days":     {strconv.Itoa(c.pastDays)},
		"forecast_days": {strconv.Itoa(c.forecastDays)},
		"timezone":      {"UTC"},
	}

	start := time.Now()
	series, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode(), lat, lon)
	c.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return nil, &domain.UpstreamDataError{Op: "fetch forecast", Err: err}
	}
	c.metrics.UpstreamRequests.WithLabelValues("success").Inc()
	return series, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, lat, lon float64) (*domain.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return c.buildSeries(payload, lat, lon)
}

// buildSeries converts the hourly payload into a domain Series, rejecting
// timestamp gaps and ragged columns rather than papering over them.
func (c *Client) buildSeries(payload response, lat, lon float64) (*domain.Series, error) {
	rawTimes, ok := payload.Hourly["time"]
	if !ok {
		return nil, fmt.Errorf("response has no hourly timestamps")
	}

	var stamps []string
	if err := json.Unmarshal(rawTimes, &stamps); err != nil {
		return nil, fmt.Errorf("parse hourly timestamps: %w", err)
	}

	times := make([]time.Time, len(stamps))
	for i, s := range stamps {
		t, err := time.Parse(hourlyTimeLayout, s)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		times[i] = t
	}
	if err := domain.ValidateHourlyTimes(times); err != nil {
		return nil, err
	}

	values := make(map[string][]float64, len(domain.BaseParameters))
	for _, param := range domain.BaseParameters {
		raw, ok := payload.Hourly[param]
		if !ok {
			// Absent parameters become all-missing columns; the feature
			// engine marks every derived feature missing and the normalizer
			// imputes.
			values[param] = missingColumn(len(times))
			c.logger.Debug("parameter absent from response", "param", param)
			continue
		}

		var col []*float64
		if err := json.Unmarshal(raw, &col); err != nil {
			return nil, fmt.Errorf("parse column %q: %w", param, err)
		}
		if len(col) != len(times) {
			return nil, fmt.Errorf("column %q has %d samples, timestamps have %d", param, len(col), len(times))
		}

		dense := make([]float64, len(col))
		for i, v := range col {
			if v == nil {
				dense[i] = domain.Missing()
			} else {
				dense[i] = *v
			}
		}
		values[param] = dense
	}

	return &domain.Series{
		Latitude:      lat,
		Longitude:     lon,
		Start:         times[0],
		ForecastStart: times[0].Add(time.Duration(c.pastDays) * 24 * time.Hour),
		Values:        values,
	}, nil
}

func missingColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
