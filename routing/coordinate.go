package routing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Bucknalla/go-route-simulator/gps"
)

var ErrMalformedCoordinate = errors.New("malformed coordinate")

// ParseCoordinate parses "lat,lon" in decimal degrees.
func ParseCoordinate(s string) (gps.Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return gps.Coordinate{}, fmt.Errorf("%w %q: expected \"lat,lon\"", ErrMalformedCoordinate, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return gps.Coordinate{}, fmt.Errorf("%w: latitude in %q: %v", ErrMalformedCoordinate, s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return gps.Coordinate{}, fmt.Errorf("%w: longitude in %q: %v", ErrMalformedCoordinate, s, err)
	}

	c := gps.Coordinate{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return gps.Coordinate{}, fmt.Errorf("%q: %w", s, err)
	}
	return c, nil
}

// Resolver turns a place name into a location.
type Resolver interface {
	Resolve(ctx context.Context, query string) (Place, error)
}

// ResolveLocation accepts either "lat,lon" or, when places is not nil, a
// place name to geocode.
func ResolveLocation(ctx context.Context, places Resolver, s string) (gps.Coordinate, error) {
	c, err := ParseCoordinate(s)
	if err == nil {
		return c, nil
	}
	if places == nil {
		return gps.Coordinate{}, err
	}

	place, rerr := places.Resolve(ctx, s)
	if rerr != nil {
		return gps.Coordinate{}, rerr
	}
	if place.Location == nil {
		return gps.Coordinate{}, fmt.Errorf("%q: %w", s, ErrPlaceNotFound)
	}
	return *place.Location, nil
}
