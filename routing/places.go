package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"googlemaps.github.io/maps"
)

var ErrPlaceNotFound = errors.New("place not found")

// Place is a simplified geocoding or autocomplete result.
type Place struct {
	Name     string          `json:"name,omitempty"`
	Address  string          `json:"address,omitempty"`
	PlaceID  string          `json:"place_id,omitempty"`
	Location *gps.Coordinate `json:"location,omitempty"`
}

// GooglePlaces resolves free-form place names with the Geocoding and
// Places APIs.
type GooglePlaces struct {
	client *maps.Client
	cfg    GoogleConfig
	lg     *log.Logger
}

func NewGooglePlaces(cfg GoogleConfig, lg *log.Logger) (*GooglePlaces, error) {
	client, err := newMapsClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GooglePlaces{client: client, cfg: cfg, lg: lg}, nil
}

// Resolve geocodes query and returns its best match.
func (p *GooglePlaces) Resolve(ctx context.Context, query string) (Place, error) {
	results, err := p.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  query,
		Language: p.cfg.Language,
		Region:   p.cfg.Region,
	})
	if err != nil {
		return Place{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("%q: %w", query, ErrPlaceNotFound)
	}

	r := results[0]
	loc := toCoordinate(r.Geometry.Location)
	p.lg.Debugf("resolved %q to %s (%s)", query, loc, r.FormattedAddress)
	return Place{
		Address:  r.FormattedAddress,
		PlaceID:  r.PlaceID,
		Location: &loc,
	}, nil
}

// Autocomplete returns place predictions for a partial query. Predictions
// carry no location; pass their address to Resolve.
func (p *GooglePlaces) Autocomplete(ctx context.Context, query string) ([]Place, error) {
	resp, err := p.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:    query,
		Language: p.cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	places := make([]Place, 0, len(resp.Predictions))
	for _, pred := range resp.Predictions {
		places = append(places, Place{
			Name:    pred.StructuredFormatting.MainText,
			Address: pred.Description,
			PlaceID: pred.PlaceID,
		})
	}
	return places, nil
}

// Search runs a text search and returns up to limit places with their
// locations.
func (p *GooglePlaces) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	resp, err := p.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    query,
		Language: p.cfg.Language,
		Region:   p.cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	var places []Place
	for _, r := range resp.Results {
		loc := toCoordinate(r.Geometry.Location)
		places = append(places, Place{
			Name:     r.Name,
			Address:  r.FormattedAddress,
			PlaceID:  r.PlaceID,
			Location: &loc,
		})
		if limit > 0 && len(places) >= limit {
			break
		}
	}
	return places, nil
}
