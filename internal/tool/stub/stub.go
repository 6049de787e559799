// Package stub holds the toy tools: weather and horoscope. They return
// canned data and exist to exercise the tool-calling path.
package stub

import (
	"context"
	"fmt"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
)

// Tool names in the registry.
const (
	WeatherToolName   = "get_weather"
	HoroscopeToolName = "get_horoscope"
)

type weatherRequest struct {
	Location string `mapstructure:"location"`
}

var cannedWeather = map[string]string{
	"Paris":    "Sunny, 22°C",
	"New York": "Cloudy, 18°C",
	"London":   "Rainy, 15°C",
	"Tokyo":    "Clear, 25°C",
	"Sydney":   "Partly cloudy, 20°C",
}

// NewWeather creates the weather stub tool.
func NewWeather() tool.Tool {
	return tool.NewAdapter(
		WeatherToolName,
		"Get current weather information for a specific location.",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"location": {
					Type:        "string",
					Description: "City name or location (e.g., 'Paris', 'New York')",
				},
			},
			Required: []string{"location"},
		},
		func(_ context.Context, req weatherRequest) (string, error) {
			weather, ok := cannedWeather[req.Location]
			if !ok {
				weather = "Weather data not available. Assuming pleasant conditions, 20°C."
			}
			return fmt.Sprintf("Current weather in %s: %s", req.Location, weather), nil
		},
	)
}

type horoscopeRequest struct {
	Sign string `mapstructure:"sign"`
}

// NewHoroscope creates the horoscope stub tool.
func NewHoroscope() tool.Tool {
	return tool.NewAdapter(
		HoroscopeToolName,
		"Get today's horoscope for an astrological sign.",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"sign": {
					Type:        "string",
					Description: "An astrological sign like Taurus or Aquarius",
				},
			},
			Required: []string{"sign"},
		},
		func(_ context.Context, req horoscopeRequest) (string, error) {
			return fmt.Sprintf("%s: Next Tuesday you will befriend a baby otter.", req.Sign), nil
		},
	)
}
