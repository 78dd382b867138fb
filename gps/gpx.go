package gps

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// GPX is the root of a GPX 1.1 document.
type GPX struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Tracks  []Track  `xml:"trk"`
	Routes  []Route  `xml:"rte"`
}

type Track struct {
	Name     string         `xml:"name"`
	Segments []TrackSegment `xml:"trkseg"`
}

type TrackSegment struct {
	TrackPoints []Waypoint `xml:"trkpt"`
}

type Route struct {
	Name        string     `xml:"name"`
	RoutePoints []Waypoint `xml:"rtept"`
}

// Waypoint is a trkpt or rtept element. Elevation and time are optional.
type Waypoint struct {
	Lat       float64    `xml:"lat,attr"`
	Lon       float64    `xml:"lon,attr"`
	Elevation *float64   `xml:"ele,omitempty"`
	Time      *time.Time `xml:"time,omitempty"`
}

// GPXWriter records fixes and writes them as a single-track GPX file.
type GPXWriter struct {
	mu       sync.Mutex
	filename string
	gpx      *GPX
	file     *os.File
}

func NewGPXWriter(filename string) (*GPXWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create GPX file %s: %w", filename, err)
	}

	return &GPXWriter{
		filename: filename,
		file:     file,
		gpx: &GPX{
			Version: "1.1",
			Creator: "go-route-simulator",
			Xmlns:   "http://www.topografix.com/GPX/1/1",
			Tracks: []Track{{
				Name:     "Simulated route",
				Segments: []TrackSegment{{TrackPoints: []Waypoint{}}},
			}},
		},
	}, nil
}

// Add appends a fix to the track.
func (w *GPXWriter) Add(pos Position) {
	alt := pos.Altitude
	ts := pos.Timestamp.UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	seg := &w.gpx.Tracks[0].Segments[0]
	seg.TrackPoints = append(seg.TrackPoints, Waypoint{
		Lat:       pos.Latitude,
		Lon:       pos.Longitude,
		Elevation: &alt,
		Time:      &ts,
	})
}

// Len returns the number of recorded fixes.
func (w *GPXWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.gpx.Tracks[0].Segments[0].TrackPoints)
}

// WriteToFile rewrites the whole file with the fixes recorded so far.
func (w *GPXWriter) WriteToFile() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked()
}

func (w *GPXWriter) writeLocked() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to beginning of file: %w", err)
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}
	if err := EncodeGPX(w.file, w.gpx); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// Close writes the final document and closes the file.
func (w *GPXWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.writeLocked()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	return err
}

// EncodeGPX writes doc as an indented XML document.
func EncodeGPX(out io.Writer, doc *GPX) error {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GPX data: %w", err)
	}
	return nil
}

// ReadGPXFile parses a GPX file into simulation points.
func ReadGPXFile(filename string) ([]SimulationPoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPX file %s: %w", filename, err)
	}
	defer file.Close()

	points, err := ReadGPX(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return points, nil
}

// ReadGPX parses a GPX document. Track points of all segments are used
// when present, otherwise the first route. When every point carries a
// timestamp and timestamps never decrease, points get an elapsed travel
// time relative to the first point and a speed over the segment leading to
// them.
func ReadGPX(r io.Reader) ([]SimulationPoint, error) {
	var doc GPX
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	var waypoints []Waypoint
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			waypoints = append(waypoints, seg.TrackPoints...)
		}
	}
	if len(waypoints) == 0 && len(doc.Routes) > 0 {
		waypoints = doc.Routes[0].RoutePoints
	}
	if len(waypoints) == 0 {
		return nil, ErrEmptyGPX
	}

	timed := hasSequentialTimestamps(waypoints)
	points := make([]SimulationPoint, len(waypoints))
	for i, wp := range waypoints {
		p := NewSimulationPoint(wp.Lat, wp.Lon)
		if wp.Elevation != nil {
			p = p.WithAltitude(*wp.Elevation)
		}
		if timed {
			p = p.WithElapsedTravelTime(wp.Time.Sub(*waypoints[0].Time))
			if i > 0 {
				prev := waypoints[i-1]
				if dt := wp.Time.Sub(*prev.Time).Seconds(); dt > 0 {
					d := Distance(Coordinate{prev.Lat, prev.Lon}, Coordinate{wp.Lat, wp.Lon})
					p = p.WithSpeed(d / dt)
				}
			}
		}
		points[i] = p
	}
	return points, nil
}

func hasSequentialTimestamps(waypoints []Waypoint) bool {
	if len(waypoints) < 2 {
		return false
	}
	for i, wp := range waypoints {
		if wp.Time == nil {
			return false
		}
		if i > 0 && wp.Time.Before(*waypoints[i-1].Time) {
			return false
		}
	}
	return true
}
