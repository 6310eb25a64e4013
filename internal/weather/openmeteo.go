package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// geocodeURL and forecastURL are vars, not consts, so tests can point
// them at a local httptest.Server.
var (
	geocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL = "https://api.open-meteo.com/v1/forecast"
)

// OpenMeteoProvider fetches weather from the free Open-Meteo geocoding
// and forecast APIs, matching the WMO weather-code table
// original_source decodes in WeatherCondition::from_wmo_code.
type OpenMeteoProvider struct {
	client *http.Client
}

// NewOpenMeteoProvider creates a provider using http.DefaultClient
// unless client is non-nil (tests inject one pointed at a local
// httptest.Server).
func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenMeteoProvider{client: client}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Admin1    string  `json:"admin1"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature2m        float64 `json:"temperature_2m"`
		ApparentTemperature  float64 `json:"apparent_temperature"`
		RelativeHumidity2m   float64 `json:"relative_humidity_2m"`
		WindSpeed10m         float64 `json:"wind_speed_10m"`
		WindDirection10m     float64 `json:"wind_direction_10m"`
		CloudCover           float64 `json:"cloud_cover"`
		UVIndex              float64 `json:"uv_index"`
		WeatherCode          int     `json:"weather_code"`
		IsDay                int     `json:"is_day"`
	} `json:"current"`
	Daily struct {
		Time                 []string  `json:"time"`
		WeatherCode          []int     `json:"weather_code"`
		Temperature2mMax     []float64 `json:"temperature_2m_max"`
		Temperature2mMin     []float64 `json:"temperature_2m_min"`
		PrecipitationProbMax []float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// Fetch geocodes location to a lat/lon pair, then fetches current
// conditions and a daily forecast for that point.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, location string) (Model, error) {
	loc, err := p.geocode(ctx, location)
	if err != nil {
		return Model{}, fmt.Errorf("geocode %q: %w", location, err)
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Lon))
	q.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,wind_direction_10m,cloud_cover,uv_index,weather_code,is_day")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	q.Set("timezone", "auto")

	var fresp forecastResponse
	if err := p.getJSON(ctx, forecastURL+"?"+q.Encode(), &fresp); err != nil {
		return Model{}, fmt.Errorf("forecast: %w", err)
	}

	model := Model{
		Location: loc,
		Current: CurrentWeather{
			TempCelsius:      fresp.Current.Temperature2m,
			FeelsLikeCelsius: fresp.Current.ApparentTemperature,
			Condition:        ConditionFromWMO(fresp.Current.WeatherCode),
			HumidityPercent:  fresp.Current.RelativeHumidity2m,
			WindSpeedKph:     fresp.Current.WindSpeed10m,
			WindDirectionDeg: fresp.Current.WindDirection10m,
			CloudCoverPct:    fresp.Current.CloudCover,
			UVIndex:          fresp.Current.UVIndex,
			IsDay:            fresp.Current.IsDay != 0,
		},
		UpdatedAt: time.Now().UTC(),
	}

	n := len(fresp.Daily.Time)
	model.Daily = make([]DailyForecast, 0, n)
	for i := 0; i < n; i++ {
		date, _ := time.Parse("2006-01-02", fresp.Daily.Time[i])
		day := DailyForecast{Date: date}
		if i < len(fresp.Daily.WeatherCode) {
			day.Condition = ConditionFromWMO(fresp.Daily.WeatherCode[i])
		}
		if i < len(fresp.Daily.Temperature2mMax) {
			day.HighCelsius = fresp.Daily.Temperature2mMax[i]
		}
		if i < len(fresp.Daily.Temperature2mMin) {
			day.LowCelsius = fresp.Daily.Temperature2mMin[i]
		}
		if i < len(fresp.Daily.PrecipitationProbMax) {
			day.RainChancePct = fresp.Daily.PrecipitationProbMax[i]
		}
		model.Daily = append(model.Daily, day)
	}
	return model, nil
}

func (p *OpenMeteoProvider) geocode(ctx context.Context, location string) (Location, error) {
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")

	var gresp geocodeResponse
	if err := p.getJSON(ctx, geocodeURL+"?"+q.Encode(), &gresp); err != nil {
		return Location{}, err
	}
	if len(gresp.Results) == 0 {
		return Location{}, fmt.Errorf("no results for %q", location)
	}
	r := gresp.Results[0]
	return Location{
		City:    r.Name,
		Region:  r.Admin1,
		Country: r.Country,
		Lat:     r.Latitude,
		Lon:     r.Longitude,
	}, nil
}

func (p *OpenMeteoProvider) getJSON(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
