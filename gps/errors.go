package gps

import "errors"

// Common errors returned by the GPS simulator
var (
	ErrInvalidSpeedMultiplier = errors.New("speed multiplier must be positive")
	ErrInvalidNoiseLevel      = errors.New("noise level must be non-negative")
	ErrInvalidDelay           = errors.New("delay between emissions must be non-negative")
	ErrInvalidDistance        = errors.New("distance between emissions must be non-negative")
	ErrInvalidCoordinate      = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
	ErrNoPoints               = errors.New("no route points to simulate")
	ErrNoRoute                = errors.New("no route has been planned")
	ErrNoRouteSource          = errors.New("no route source configured")
	ErrEmptyGPX               = errors.New("no track points or route points found in GPX file")
)
