package gps

// PointProcessor transforms a point. Implementations return a modified
// copy and never change their input.
type PointProcessor interface {
	Process(p SimulationPoint) SimulationPoint
}

// ProcessorFunc adapts a function to the PointProcessor interface.
type ProcessorFunc func(SimulationPoint) SimulationPoint

func (f ProcessorFunc) Process(p SimulationPoint) SimulationPoint { return f(p) }

// Pipeline applies its processors in order.
type Pipeline struct {
	processors []PointProcessor
}

// NewPipeline builds the processing chain for one playback pass: bearing
// assignment, then noise when config.NoiseLevelInMeters > 0. The chain is
// fixed for the lifetime of the pipeline.
func NewPipeline(config Config, noise *NoiseGenerator) *Pipeline {
	p := &Pipeline{}
	p.processors = append(p.processors, NewBearingProcessor())
	if config.NoiseLevelInMeters > 0 {
		if noise == nil {
			noise = newTimeSeededNoiseGenerator()
		}
		p.processors = append(p.processors, &NoiseProcessor{
			NoiseLevelInMeters: config.NoiseLevelInMeters,
			Generator:          noise,
		})
	}
	return p
}

func (p *Pipeline) Process(point SimulationPoint) SimulationPoint {
	for _, proc := range p.processors {
		point = proc.Process(point)
	}
	return point
}

// Len returns the number of processors in the chain.
func (p *Pipeline) Len() int { return len(p.processors) }

// BearingProcessor sets each point's bearing to the heading from the
// previous point. The first point keeps whatever bearing it already had.
type BearingProcessor struct {
	headings *HeadingCalculator
}

func NewBearingProcessor() *BearingProcessor {
	return &BearingProcessor{headings: NewHeadingCalculator()}
}

func (b *BearingProcessor) Process(p SimulationPoint) SimulationPoint {
	out := p.clone()
	if bearing, ok := b.headings.FromPrevious(p.Coordinate()); ok {
		out = out.WithBearing(bearing)
	}
	return out
}

// NoiseProcessor displaces points by random jitter.
type NoiseProcessor struct {
	NoiseLevelInMeters float64
	Generator          *NoiseGenerator
}

func (n *NoiseProcessor) Process(p SimulationPoint) SimulationPoint {
	dLat, dLon := n.Generator.Generate(n.NoiseLevelInMeters)
	return p.clone().WithPosition(p.Latitude+dLat, p.Longitude+dLon)
}
