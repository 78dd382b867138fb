package gps

import (
	"encoding/xml"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewGPXWriterInvalidPath(t *testing.T) {
	if _, err := NewGPXWriter("/nonexistent/directory/track.gpx"); err == nil {
		t.Error("Expected error for invalid path")
	}
}

func TestGPXWriterRoundTrip(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "track.gpx")

	writer, err := NewGPXWriter(tempFile)
	if err != nil {
		t.Fatalf("Failed to create GPX writer: %v", err)
	}

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	writer.Add(Position{Latitude: 37.7749, Longitude: -122.4194, Altitude: 45, Timestamp: start})
	writer.Add(Position{Latitude: 37.7758, Longitude: -122.4194, Altitude: 46, Timestamp: start.Add(10 * time.Second)})

	if writer.Len() != 2 {
		t.Errorf("Expected 2 recorded fixes, got %d", writer.Len())
	}
	if err := writer.WriteToFile(); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	content, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatalf("Failed to read GPX file: %v", err)
	}
	if !strings.HasPrefix(string(content), xml.Header) {
		t.Error("GPX file should start with the XML header")
	}
	var doc GPX
	if err := xml.Unmarshal(content, &doc); err != nil {
		t.Fatalf("Written GPX is not valid XML: %v", err)
	}
	if doc.Version != "1.1" || doc.Xmlns != "http://www.topografix.com/GPX/1/1" {
		t.Errorf("Unexpected GPX header %q %q", doc.Version, doc.Xmlns)
	}

	points, err := ReadGPXFile(tempFile)
	if err != nil {
		t.Fatalf("ReadGPXFile failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if points[0].Altitude == nil || *points[0].Altitude != 45 {
		t.Errorf("Expected altitude 45, got %v", points[0].Altitude)
	}
	if points[1].ElapsedTravelTime == nil || *points[1].ElapsedTravelTime != 10*time.Second {
		t.Errorf("Expected elapsed 10s, got %v", points[1].ElapsedTravelTime)
	}
	if points[0].Speed != nil {
		t.Error("First point should have no speed")
	}
	// ~100m in 10s
	if points[1].Speed == nil || math.Abs(*points[1].Speed-10) > 0.5 {
		t.Errorf("Expected speed ~10 m/s, got %v", points[1].Speed)
	}
}

const routeGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte>
    <name>Test route</name>
    <rtept lat="52.0" lon="4.0"></rtept>
    <rtept lat="52.1" lon="4.1"><ele>3.5</ele></rtept>
    <rtept lat="52.2" lon="4.2"></rtept>
  </rte>
</gpx>`

func TestReadGPXRoutePoints(t *testing.T) {
	points, err := ReadGPX(strings.NewReader(routeGPX))
	if err != nil {
		t.Fatalf("ReadGPX failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(points))
	}
	if points[1].Latitude != 52.1 || points[1].Longitude != 4.1 {
		t.Errorf("Unexpected coordinates %v", points[1])
	}
	if points[0].Altitude != nil || points[1].Altitude == nil || *points[1].Altitude != 3.5 {
		t.Error("Altitude should only be set where the GPX has an elevation")
	}
	for i, p := range points {
		if p.ElapsedTravelTime != nil || p.Speed != nil {
			t.Errorf("point %d: untimed GPX should not yield timing data", i)
		}
	}
}

const multiSegmentGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <trkseg>
      <trkpt lat="1.0" lon="1.0"><time>2024-01-01T00:00:10Z</time></trkpt>
      <trkpt lat="1.0" lon="1.001"><time>2024-01-01T00:00:05Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="1.0" lon="1.002"><time>2024-01-01T00:00:20Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestReadGPXNonSequentialTimestamps(t *testing.T) {
	points, err := ReadGPX(strings.NewReader(multiSegmentGPX))
	if err != nil {
		t.Fatalf("ReadGPX failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("Expected points from every segment, got %d", len(points))
	}
	for i, p := range points {
		if p.ElapsedTravelTime != nil {
			t.Errorf("point %d: out-of-order timestamps should not be used for timing", i)
		}
	}
}

func TestReadGPXErrors(t *testing.T) {
	empty := `<gpx version="1.1" creator="test"></gpx>`
	if _, err := ReadGPX(strings.NewReader(empty)); !errors.Is(err, ErrEmptyGPX) {
		t.Errorf("Expected ErrEmptyGPX, got %v", err)
	}
	if _, err := ReadGPX(strings.NewReader("not xml")); err == nil {
		t.Error("Expected parse error")
	}
	if _, err := ReadGPXFile(filepath.Join(t.TempDir(), "missing.gpx")); err == nil {
		t.Error("Expected error for missing file")
	}
}
