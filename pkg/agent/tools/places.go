package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/provider"
)

const geoapifyBase = "https://api.geoapify.com/v1"

// PlacesSearch resolves a place name to addresses via Geoapify geocoding.
// An empty API key leaves the tool registered but degraded, so the model
// gets a usable hint instead of a transport error.
type PlacesSearch struct {
	apiKey string
	client *http.Client
	base   string
}

func NewPlacesSearch(apiKey string) *PlacesSearch {
	return &PlacesSearch{apiKey: apiKey, client: newHTTPClient(), base: geoapifyBase}
}

func (t *PlacesSearch) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolPlacesSearch),
		Description: "Look up a business or place by name to get its address. " +
			"Use when an event or email mentions a venue without an address.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Place name, optionally with a city (e.g. 'Blue Bottle Oakland').",
				},
				"country": map[string]interface{}{
					"type":        "string",
					"description": "Optional two-letter country code to narrow results.",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *PlacesSearch) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	query := stringArg(inv.Args, "query")
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	if t.apiKey == "" {
		return errorPayloadJSON("places lookup is not configured",
			"answer from the corpus, or ask the user for the address"), nil
	}

	params := url.Values{}
	params.Add("text", query)
	params.Add("limit", "5")
	params.Add("format", "geojson")
	if country := stringArg(inv.Args, "country"); country != "" {
		params.Add("filter", "countrycode:"+country)
	}
	params.Add("apiKey", t.apiKey)

	var result struct {
		Features []struct {
			Properties struct {
				Name      string  `json:"name"`
				Formatted string  `json:"formatted"`
				City      string  `json:"city"`
				Country   string  `json:"country"`
				Lon       float64 `json:"lon"`
				Lat       float64 `json:"lat"`
			} `json:"properties"`
		} `json:"features"`
	}

	reqURL := t.base + "/geocode/search?" + params.Encode()
	if err := doJSON(ctx, t.client, http.MethodGet, reqURL, "", nil, &result); err != nil {
		// A 401 here means a bad Geoapify key, not a broken user account.
		if errors.Is(err, provider.ErrReconnectRequired) {
			return "", fmt.Errorf("places search: api key rejected")
		}
		return "", fmt.Errorf("places search: %w", err)
	}

	places := []map[string]interface{}{}
	seen := make(map[string]bool)
	for _, feature := range result.Features {
		address := feature.Properties.Formatted
		if address == "" || seen[address] {
			continue
		}
		seen[address] = true
		entry := map[string]interface{}{
			"address": address,
			"lat":     feature.Properties.Lat,
			"lon":     feature.Properties.Lon,
		}
		if feature.Properties.Name != "" {
			entry["name"] = feature.Properties.Name
		}
		if feature.Properties.City != "" {
			entry["city"] = feature.Properties.City
		}
		places = append(places, entry)
	}

	if len(places) == 0 {
		return errorPayloadJSON(fmt.Sprintf("no places matching %q", query),
			"add a city or region to the query"), nil
	}
	return marshalPayload(map[string]interface{}{"places": places}), nil
}
