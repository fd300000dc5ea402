package location

import (
	"context"
	"time"

	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client     *maps.Client // Maps API client for making geolocation requests
	modemIndex int
	timeout    time.Duration
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:     c,
		modemIndex: modemIndex,
		timeout:    10 * time.Second,
	}, nil
}

// GetLocation retrieves the device's location using Google Maps Geolocation API.
// WiFi and cell data are best effort; the request falls back to IP geolocation.
func (g *GoogleGeolocationProvider) GetLocation() (Location, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	req := &maps.GeolocationRequest{ConsiderIP: true}

	if wifiAPs, err := getWiFiAccessPoints(ctx); err == nil {
		req.WiFiAccessPoints = wifiAPs
	}
	if cellTowers, err := getCellTowers(ctx, g.modemIndex); err == nil {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Location{}, err
	}

	return Location{
		Coordinate: Coordinate{Latitude: resp.Location.Lat, Longitude: resp.Location.Lng},
		Accuracy:   resp.Accuracy,
	}, nil
}

// Close is a no-op; the maps client holds no persistent connection.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
