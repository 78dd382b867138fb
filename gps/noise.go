package gps

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// noiseReferenceLatitude is the latitude used to scale longitude noise
// from meters to degrees. Using the equator instead of the point's own
// latitude under-scales longitude noise at high latitudes.
const noiseReferenceLatitude = 0.0

// NoiseGenerator produces uniform positional jitter.
type NoiseGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNoiseGenerator returns a generator drawing from a source seeded with
// seed. Generators with the same seed produce the same sequence.
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	return &NoiseGenerator{rng: rand.New(rand.NewSource(seed))}
}

func newTimeSeededNoiseGenerator() *NoiseGenerator {
	return NewNoiseGenerator(time.Now().UnixNano())
}

// Generate draws an offset in degrees whose components each correspond to
// a uniform value in [-noiseLevelInMeters, +noiseLevelInMeters] meters.
func (g *NoiseGenerator) Generate(noiseLevelInMeters float64) (dLat, dLon float64) {
	g.mu.Lock()
	a, b := g.rng.Float64(), g.rng.Float64()
	g.mu.Unlock()

	dLat = (a - 0.5) * 2 * noiseLevelInMeters / MetersPerDegreeLatitude
	dLon = (b - 0.5) * 2 * noiseLevelInMeters /
		(MetersPerDegreeLatitude * math.Cos(toRadians(noiseReferenceLatitude)))
	return dLat, dLon
}
