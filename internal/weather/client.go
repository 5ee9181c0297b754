// Package weather fetches current conditions for the status bar. Lookups are
// best effort; callers fall back to time-only display on any error.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"splitflap"
)

const defaultTimeout = 5 * time.Second

// Client reads a JSON endpoint shaped like open-meteo's current weather.
type Client struct {
	url        string
	httpClient *http.Client
}

func New(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type currentWeatherResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// CurrentConditions fetches the latest snapshot.
func (c *Client) CurrentConditions(ctx context.Context) (splitflap.Conditions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return splitflap.Conditions{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return splitflap.Conditions{}, fmt.Errorf("fetch weather: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return splitflap.Conditions{}, fmt.Errorf("weather endpoint returned %d", resp.StatusCode)
	}

	var parsed currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return splitflap.Conditions{}, fmt.Errorf("decode weather response: %w", err)
	}

	return splitflap.Conditions{
		TempC:     parsed.CurrentWeather.Temperature,
		Condition: weatherCodeLabel(parsed.CurrentWeather.WeatherCode),
	}, nil
}

// weatherCodeLabel maps WMO weather codes to short labels.
func weatherCodeLabel(code int) string {
	switch {
	case code == 0:
		return "CLEAR"
	case code <= 3:
		return "CLOUDY"
	case code <= 48:
		return "FOG"
	case code <= 67:
		return "RAIN"
	case code <= 77:
		return "SNOW"
	case code <= 82:
		return "SHOWERS"
	default:
		return "STORM"
	}
}
