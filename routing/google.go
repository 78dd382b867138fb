// Package routing plans routes between coordinates and resolves place
// names, either offline or through the Google Maps Platform.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"googlemaps.github.io/maps"
)

// ErrNoRouteFound is returned when the Directions API has no route between
// the requested points.
var ErrNoRouteFound = errors.New("no route found")

// GoogleConfig configures access to the Google Maps Platform.
type GoogleConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"` // overrides the API host, mainly for tests
	Mode     string `mapstructure:"mode"`     // driving, walking, bicycling or transit
	Language string `mapstructure:"language"`
	Region   string `mapstructure:"region"`
}

func newMapsClient(cfg GoogleConfig) (*maps.Client, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

// GoogleRouteService plans routes with the Google Directions API.
type GoogleRouteService struct {
	client *maps.Client
	cfg    GoogleConfig
	lg     *log.Logger
}

func NewGoogleRouteService(cfg GoogleConfig, lg *log.Logger) (*GoogleRouteService, error) {
	client, err := newMapsClient(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = string(maps.TravelModeDriving)
	}
	return &GoogleRouteService{client: client, cfg: cfg, lg: lg}, nil
}

// PlanRoute requests directions and flattens the first route into
// simulation points, one per polyline vertex.
func (s *GoogleRouteService) PlanRoute(ctx context.Context, origin, destination gps.Coordinate) ([]gps.SimulationPoint, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin.String(),
		Destination: destination.String(),
		Mode:        maps.Mode(s.cfg.Mode),
		Language:    s.cfg.Language,
		Region:      s.cfg.Region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRouteFound
	}

	points, err := pointsFromRoute(routes[0])
	if err != nil {
		return nil, err
	}
	s.lg.Infof("planned route %s -> %s: %d points", origin, destination, len(points))
	return points, nil
}

// pointsFromRoute decodes every step polyline of route. Each vertex gets
// an elapsed travel time interpolated by distance along its step, and the
// step's mean speed. The first point carries no speed.
func pointsFromRoute(route maps.Route) ([]gps.SimulationPoint, error) {
	var points []gps.SimulationPoint
	var elapsed time.Duration

	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			path, err := step.Polyline.Decode()
			if err != nil {
				return nil, fmt.Errorf("decoding step polyline: %w", err)
			}
			if len(path) == 0 {
				elapsed += step.Duration
				continue
			}

			cumulative := make([]float64, len(path))
			for i := 1; i < len(path); i++ {
				cumulative[i] = cumulative[i-1] + gps.Distance(toCoordinate(path[i-1]), toCoordinate(path[i]))
			}
			length := cumulative[len(path)-1]

			meters := float64(step.Distance.Meters)
			if meters == 0 {
				meters = length
			}
			var speed float64
			if step.Duration > 0 {
				speed = meters / step.Duration.Seconds()
			}

			for i, ll := range path {
				// a step starts where the previous one ended
				if i == 0 && len(points) > 0 {
					continue
				}

				offset := time.Duration(0)
				if length > 0 {
					offset = time.Duration(float64(step.Duration) * cumulative[i] / length)
				}

				p := gps.NewSimulationPoint(ll.Lat, ll.Lng).WithElapsedTravelTime(elapsed + offset)
				if len(points) > 0 {
					p = p.WithSpeed(speed)
				}
				points = append(points, p)
			}
			elapsed += step.Duration
		}
	}

	if len(points) == 0 {
		return nil, ErrNoRouteFound
	}
	return points, nil
}

func toCoordinate(ll maps.LatLng) gps.Coordinate {
	return gps.Coordinate{Latitude: ll.Lat, Longitude: ll.Lng}
}
