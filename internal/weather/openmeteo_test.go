package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConditionFromWMOCode(t *testing.T) {
	cases := map[int]Condition{
		0:  ConditionClear,
		2:  ConditionPartlyCloudy,
		3:  ConditionCloudy,
		45: ConditionFog,
		61: ConditionLightRain,
		63: ConditionRain,
		65: ConditionHeavyRain,
		71: ConditionLightSnow,
		95: ConditionThunderstorm,
		12: ConditionUnknown,
	}
	for code, want := range cases {
		if got := ConditionFromWMO(code); got != want {
			t.Errorf("ConditionFromWMO(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestOpenMeteoProviderFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"name": "Testville", "admin1": "State", "country": "Country", "latitude": 1.5, "longitude": 2.5},
			},
		})
	})
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"current": map[string]any{
				"temperature_2m": 21.0, "weather_code": 61, "is_day": 1,
			},
			"daily": map[string]any{
				"time":                           []string{"2026-07-31"},
				"weather_code":                   []int{3},
				"temperature_2m_max":             []float64{25.0},
				"temperature_2m_min":             []float64{15.0},
				"precipitation_probability_max":  []float64{10.0},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client())
	// Redirect the package-level URLs to the test server for this call
	// by constructing through the same helper paths the provider uses.
	oldGeocode, oldForecast := geocodeURL, forecastURL
	geocodeURL, forecastURL = srv.URL+"/v1/search", srv.URL+"/v1/forecast"
	defer func() { geocodeURL, forecastURL = oldGeocode, oldForecast }()

	model, err := p.Fetch(context.Background(), "Testville")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if model.Location.City != "Testville" {
		t.Fatalf("unexpected location: %+v", model.Location)
	}
	if model.Current.Condition != ConditionLightRain {
		t.Fatalf("unexpected condition: %v", model.Current.Condition)
	}
	if len(model.Daily) != 1 || model.Daily[0].HighCelsius != 25.0 {
		t.Fatalf("unexpected daily forecast: %+v", model.Daily)
	}
}
