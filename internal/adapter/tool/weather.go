package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"switchboard/internal/domain"
	"switchboard/internal/infra/tracer"
)

// Weather implements domain.WeatherClient against the OpenWeatherMap API.
// It extracts a city from free text, fetches current conditions, and formats
// them for prompt grounding.
type Weather struct {
	client  *http.Client
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewWeather creates a weather client. baseURL defaults to the public
// OpenWeatherMap endpoint when empty.
func NewWeather(apiKey, baseURL string, logger *slog.Logger) *Weather {
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org/data/2.5"
	}
	return &Weather{
		client:  &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// owmResponse models the relevant portion of the current weather response.
type owmResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Search implements domain.WeatherClient. Returns ErrNoResults when no city
// can be determined from the query.
func (w *Weather) Search(ctx context.Context, query, units string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "tool.weather",
		trace.WithAttributes(tracer.StringAttr("tool.query", query)),
	)
	defer span.End()

	city := extractCity(query)
	if city == "" {
		err := fmt.Errorf("%w: could not determine the city from %q", domain.ErrNoResults, query)
		tracer.RecordError(span, err)
		return "", err
	}
	span.SetAttributes(tracer.StringAttr("tool.city", city))

	if units != "metric" && units != "imperial" {
		units = "metric"
	}

	cond, err := w.currentWeather(ctx, city, units)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	unitSymbol, windUnit := "°C", "m/s"
	if units == "imperial" {
		unitSymbol, windUnit = "°F", "mph"
	}

	result := fmt.Sprintf(
		"Current weather in %s, %s:\n"+
			"- Temperature: %.1f%s (feels like %.1f%s)\n"+
			"- Conditions: %s\n"+
			"- Humidity: %d%%\n"+
			"- Wind: %.1f %s",
		cond.Name, cond.Sys.Country,
		cond.Main.Temp, unitSymbol, cond.Main.FeelsLike, unitSymbol,
		description(cond), cond.Main.Humidity, cond.Wind.Speed, windUnit,
	)

	w.logger.Debug("weather retrieved", "city", cond.Name, "units", units)
	tracer.SetOK(span)
	return result, nil
}

func description(r *owmResponse) string {
	if len(r.Weather) == 0 {
		return "unknown"
	}
	return r.Weather[0].Description
}

func (w *Weather) currentWeather(ctx context.Context, city, units string) (*owmResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/weather", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("q", city)
	q.Set("appid", w.apiKey)
	q.Set("units", units)
	req.URL.RawQuery = q.Encode()

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: city %q not found", domain.ErrNoResults, city)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: weather API key rejected", domain.ErrAuthInvalid)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: weather API error %d: %s", domain.ErrProviderError, resp.StatusCode, string(body))
	}

	var owm owmResponse
	if err := json.Unmarshal(body, &owm); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &owm, nil
}

// cityPatterns are tried in order against the lowercased query; the city is
// everything after the first match.
var cityPatterns = []string{
	"weather in ",
	"weather for ",
	"temperature in ",
	"temperature at ",
	"forecast for ",
	"forecast in ",
	"how's the weather in ",
	"what's the weather in ",
	"what is the weather in ",
	"weather of ",
}

// citySuffixes are stripped from an extracted city.
var citySuffixes = []string{"?", ".", "!", " today", " now", " like", " right now"}

// extractCity pulls a city name out of a natural language query.
// Returns "" when no city can be determined.
func extractCity(query string) string {
	queryLower := strings.ToLower(query)

	for _, pattern := range cityPatterns {
		idx := strings.Index(queryLower, pattern)
		if idx < 0 {
			continue
		}
		city := strings.TrimSpace(query[idx+len(pattern):])
		for _, suffix := range citySuffixes {
			city = strings.ReplaceAll(city, suffix, "")
		}
		return strings.TrimSpace(city)
	}

	// Fall back to the words after a locative preposition.
	words := strings.Fields(query)
	for i, word := range words {
		switch strings.ToLower(word) {
		case "in", "at", "for":
			if i+1 < len(words) {
				return strings.Trim(strings.Join(words[i+1:], " "), "?.,!")
			}
		}
	}

	// Last resort: a short query is probably just the city itself.
	if len(words) <= 3 && !strings.Contains(queryLower, "weather") {
		return strings.Trim(query, "?.,! ")
	}

	return ""
}

var _ domain.WeatherClient = (*Weather)(nil)
