// Package owm implements the reading collector against the OpenWeatherMap
// one-call API: current conditions and the short-horizon daily forecast.
package owm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mfigueredo/clima-alerta/internal/domain"
)

// Client fetches weather data for one fixed location.
type Client struct {
	apiKey     string
	lat, lon   float64
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap one-call client. The timeout bounds
// every request; there are no retries.
func NewClient(apiKey string, lat, lon float64, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		lat:    lat,
		lon:    lon,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		logger:  logger,
	}
}

// Current fetches the current conditions as a Reading. Temperature and
// humidity are required fields; their absence is a boundary validation
// error and no Reading is produced.
func (c *Client) Current(ctx context.Context) (domain.Reading, error) {
	var payload oneCallResponse
	if err := c.fetch(ctx, "minutely,hourly,daily,alerts", &payload); err != nil {
		return domain.Reading{}, err
	}
	if payload.Current == nil {
		return domain.Reading{}, fmt.Errorf("response has no current section")
	}

	cur := payload.Current
	if cur.Temp == nil || cur.Humidity == nil {
		return domain.Reading{}, fmt.Errorf("current conditions: %w", domain.ErrIncompleteReading)
	}

	reading := domain.Reading{
		Timestamp:   time.Unix(cur.Dt, 0).UTC(),
		Temperature: *cur.Temp,
		Humidity:    *cur.Humidity,
		RainMM:      cur.Rain.OneHour,
		Condition:   conditionText(cur.Weather),
		WindKMH:     cur.WindSpeed * 3.6, // API reports m/s
	}

	c.logger.Debug("current conditions fetched",
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"rain_mm", reading.RainMM,
	)
	return reading, nil
}

// Forecast fetches the daily forecast entries in chronological order.
func (c *Client) Forecast(ctx context.Context) ([]domain.ForecastDay, error) {
	var payload oneCallResponse
	if err := c.fetch(ctx, "current,minutely,hourly,alerts", &payload); err != nil {
		return nil, err
	}
	if len(payload.Daily) == 0 {
		c.logger.Warn("response has no daily forecast")
		return nil, nil
	}

	days := make([]domain.ForecastDay, 0, len(payload.Daily))
	for _, d := range payload.Daily {
		days = append(days, domain.ForecastDay{
			Date:      time.Unix(d.Dt, 0).UTC(),
			TempMax:   d.Temp.Max,
			TempMin:   d.Temp.Min,
			Humidity:  d.Humidity,
			RainMM:    d.Rain,
			Condition: conditionText(d.Weather),
		})
	}

	c.logger.Debug("daily forecast fetched", "days", len(days))
	return days, nil
}

func (c *Client) fetch(ctx context.Context, exclude string, v any) error {
	params := url.Values{
		"lat":     {strconv.FormatFloat(c.lat, 'f', -1, 64)},
		"lon":     {strconv.FormatFloat(c.lon, 'f', -1, 64)},
		"appid":   {c.apiKey},
		"units":   {"metric"},
		"exclude": {exclude},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// conditionText returns the capitalized description of the leading weather
// entry, or a placeholder when the API omits it.
func conditionText(weather []weatherInfo) string {
	if len(weather) == 0 || weather[0].Description == "" {
		return "not available"
	}
	desc := weather[0].Description
	r, size := utf8.DecodeRuneInString(desc)
	return string(unicode.ToUpper(r)) + strings.ToLower(desc[size:])
}

// OpenWeatherMap one-call response types.

type oneCallResponse struct {
	Current *currentConditions `json:"current"`
	Daily   []dailyForecast    `json:"daily"`
}

type currentConditions struct {
	Dt        int64         `json:"dt"`
	Temp      *float64      `json:"temp"`
	Humidity  *float64      `json:"humidity"`
	WindSpeed float64       `json:"wind_speed"`
	Rain      rainVolume    `json:"rain"`
	Weather   []weatherInfo `json:"weather"`
}

type dailyForecast struct {
	Dt       int64         `json:"dt"`
	Temp     tempRange     `json:"temp"`
	Humidity float64       `json:"humidity"`
	Rain     float64       `json:"rain"`
	Weather  []weatherInfo `json:"weather"`
}

type tempRange struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

type rainVolume struct {
	OneHour float64 `json:"1h"`
}

type weatherInfo struct {
	Description string `json:"description"`
}
