// Package weather is a supplemental subsystem recovered from
// original_source/crates/wayle-weather/src/model.rs: a polled weather
// model refreshed on a reactive.ConfigProperty-controlled interval.
// The HTTP transport (internal/weather/openmeteo.go) talks to the
// Open-Meteo forecast and geocoding APIs, matching the WMO weather-code
// table the original implementation's WeatherCondition::from_wmo_code
// decodes; net/http is used directly since no HTTP client library
// appears anywhere in the retrieved example pack.
package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/wayle-project/wayle/internal/reactive"
)

// Condition mirrors original_source's WeatherCondition enum, collapsed
// from the WMO weather-interpretation code table.
type Condition int

const (
	ConditionUnknown Condition = iota
	ConditionClear
	ConditionPartlyCloudy
	ConditionCloudy
	ConditionOvercast
	ConditionMist
	ConditionFog
	ConditionDrizzle
	ConditionLightRain
	ConditionRain
	ConditionHeavyRain
	ConditionSleet
	ConditionLightSnow
	ConditionSnow
	ConditionHeavySnow
	ConditionThunderstorm
)

// ConditionFromWMO maps a WMO weather-interpretation code to a
// Condition, following original_source/crates/wayle-weather/src/model.rs's
// from_wmo_code match table exactly.
func ConditionFromWMO(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code == 1, code == 2:
		return ConditionPartlyCloudy
	case code == 3:
		return ConditionCloudy
	case code == 44:
		return ConditionMist
	case code == 45, code == 48:
		return ConditionFog
	case code == 51, code == 53, code == 55:
		return ConditionDrizzle
	case code == 56, code == 57:
		return ConditionSleet
	case code == 61:
		return ConditionLightRain
	case code == 63:
		return ConditionRain
	case code == 65:
		return ConditionHeavyRain
	case code == 66, code == 67:
		return ConditionSleet
	case code == 71:
		return ConditionLightSnow
	case code == 73:
		return ConditionSnow
	case code == 75:
		return ConditionHeavySnow
	case code == 77:
		return ConditionSnow
	case code >= 80 && code <= 82:
		return ConditionRain
	case code == 85, code == 86:
		return ConditionSnow
	case code == 95, code == 96, code == 99:
		return ConditionThunderstorm
	default:
		return ConditionUnknown
	}
}

// String returns the human-readable name used in original_source's
// WeatherCondition::as_str.
func (c Condition) String() string {
	switch c {
	case ConditionClear:
		return "Clear"
	case ConditionPartlyCloudy:
		return "Partly Cloudy"
	case ConditionCloudy:
		return "Cloudy"
	case ConditionOvercast:
		return "Overcast"
	case ConditionMist:
		return "Mist"
	case ConditionFog:
		return "Fog"
	case ConditionDrizzle:
		return "Drizzle"
	case ConditionLightRain:
		return "Light Rain"
	case ConditionRain:
		return "Rain"
	case ConditionHeavyRain:
		return "Heavy Rain"
	case ConditionSleet:
		return "Sleet"
	case ConditionLightSnow:
		return "Light Snow"
	case ConditionSnow:
		return "Snow"
	case ConditionHeavySnow:
		return "Heavy Snow"
	case ConditionThunderstorm:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}

// Location is the geographic point weather data applies to.
type Location struct {
	City    string
	Region  string
	Country string
	Lat     float64
	Lon     float64
}

// CurrentWeather is the real-time reading for a Location.
type CurrentWeather struct {
	TempCelsius      float64
	FeelsLikeCelsius float64
	Condition        Condition
	HumidityPercent  float64
	WindSpeedKph     float64
	WindDirectionDeg float64
	CloudCoverPct    float64
	UVIndex          float64
	IsDay            bool
}

// DailyForecast is one day's outlook.
type DailyForecast struct {
	Date          time.Time
	Condition     Condition
	HighCelsius   float64
	LowCelsius    float64
	RainChancePct float64
}

// Model is a single complete weather reading: current conditions plus
// an upcoming-days forecast.
type Model struct {
	Location  Location
	Current   CurrentWeather
	Daily     []DailyForecast
	UpdatedAt time.Time
}

// Provider fetches a fresh Model for a named location. Implementations
// wrap whatever geocoding/forecast API is configured; OpenMeteoProvider
// is the one in this package.
type Provider interface {
	Fetch(ctx context.Context, location string) (Model, error)
}

// Service polls Provider on a ConfigProperty-controlled interval and
// republishes the result as a Property.
type Service struct {
	logger   *slog.Logger
	provider Provider

	Location     *reactive.ConfigProperty[string]
	PollInterval *reactive.ConfigProperty[time.Duration]
	Current      *reactive.Property[Model]
}

// New creates a Service with the given compiled defaults.
func New(provider Provider, defaultLocation string, defaultInterval time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:       logger,
		provider:     provider,
		Location:     reactive.NewConfigProperty(defaultLocation),
		PollInterval: reactive.NewConfigProperty(defaultInterval),
		Current:      reactive.New(Model{}),
	}
}

// Start polls until ctx is cancelled, restarting its ticker whenever
// PollInterval's effective value changes (watcher-token reset pattern
// generalized inline here since only one watcher is ever active).
func (s *Service) Start(ctx context.Context) {
	go func() {
		intervalCh := s.PollInterval.Watch(ctx)
		interval := <-intervalCh
		s.poll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case newInterval := <-intervalCh:
				ticker.Reset(newInterval)
			case <-ticker.C:
				s.poll(ctx)
			}
		}
	}()
}

func (s *Service) poll(ctx context.Context) {
	loc := s.Location.Get()
	model, err := s.provider.Fetch(ctx, loc)
	if err != nil {
		s.logger.Warn("weather fetch failed", "location", loc, "error", err)
		return
	}
	s.Current.Set(model)
}
