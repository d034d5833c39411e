package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

const metresPerMile = 1609.34

// OpenWeatherClient talks to the OpenWeather One Call 3.0 API in imperial units
type OpenWeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenWeatherClient(apiKey, baseURL string) *OpenWeatherClient {
	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type owCondition struct {
	Main string `json:"main"`
}

type owPoint struct {
	Dt         int64         `json:"dt"`
	Temp       float64       `json:"temp"`
	DewPoint   float64       `json:"dew_point"`
	Pressure   float64       `json:"pressure"`
	Humidity   float64       `json:"humidity"`
	Clouds     float64       `json:"clouds"`
	Visibility *float64      `json:"visibility"`
	WindSpeed  float64       `json:"wind_speed"`
	WindGust   *float64      `json:"wind_gust"`
	Weather    []owCondition `json:"weather"`
}

// daily entries carry temperature as an object
type owDaily struct {
	owPoint
	Temp struct {
		Day float64 `json:"day"`
	} `json:"temp"`
}

type owResponse struct {
	Current owPoint   `json:"current"`
	Hourly  []owPoint `json:"hourly"`
	Daily   []owDaily `json:"daily"`
}

func (c *OpenWeatherClient) FetchCurrent(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	resp, err := c.fetch(ctx, lat, lon, "minutely,hourly,daily,alerts")
	if err != nil {
		return models.WeatherSnapshot{}, err
	}
	return toSnapshot(resp.Current), nil
}

// FetchForecast picks the hourly point nearest to at, falling back to the daily entry
// for at's day when it lies beyond the hourly range.
func (c *OpenWeatherClient) FetchForecast(ctx context.Context, lat, lon float64, at time.Time) (models.WeatherSnapshot, error) {
	resp, err := c.fetch(ctx, lat, lon, "minutely,alerts")
	if err != nil {
		return models.WeatherSnapshot{}, err
	}
	if p, ok := nearestHourly(resp.Hourly, at); ok {
		return toSnapshot(p), nil
	}
	for _, d := range resp.Daily {
		day := time.Unix(d.Dt, 0).UTC()
		if day.Year() == at.UTC().Year() && day.YearDay() == at.UTC().YearDay() {
			p := d.owPoint
			p.Temp = d.Temp.Day
			return toSnapshot(p), nil
		}
	}
	return models.WeatherSnapshot{}, fmt.Errorf("no forecast available for %s", at.Format(time.RFC3339))
}

func (c *OpenWeatherClient) fetch(ctx context.Context, lat, lon float64, exclude string) (*owResponse, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "imperial")
	q.Set("exclude", exclude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call weather API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body owResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	return &body, nil
}

func nearestHourly(points []owPoint, at time.Time) (owPoint, bool) {
	best := -1
	var bestDiff time.Duration
	for i, p := range points {
		diff := time.Unix(p.Dt, 0).Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 || bestDiff > time.Hour {
		return owPoint{}, false
	}
	return points[best], true
}

func toSnapshot(p owPoint) models.WeatherSnapshot {
	conditions := make([]string, 0, len(p.Weather))
	for _, w := range p.Weather {
		conditions = append(conditions, w.Main)
	}

	// daily entries omit visibility; assume clear
	visibility := 10.0
	if p.Visibility != nil {
		visibility = *p.Visibility / metresPerMile
	}

	return models.WeatherSnapshot{
		ObservedAt:      time.Unix(p.Dt, 0).UTC(),
		VisibilityMiles: visibility,
		CeilingFeet:     EstimateCeiling(p.Clouds),
		WindSpeedKnots:  p.WindSpeed,
		WindGustKnots:   p.WindGust,
		Conditions:      conditions,
		TemperatureF:    p.Temp,
		DewPointF:       p.DewPoint,
		PressureHPa:     p.Pressure,
		HumidityPct:     p.Humidity,
	}
}

// EstimateCeiling approximates a ceiling from cloud cover percent; nil means clear skies
func EstimateCeiling(cloudPct float64) *float64 {
	var ft float64
	switch {
	case cloudPct <= 0:
		return nil
	case cloudPct < 25:
		ft = 10000
	case cloudPct < 50:
		ft = 5000
	case cloudPct < 88:
		ft = 2000
	default:
		ft = 1000
	}
	return &ft
}
