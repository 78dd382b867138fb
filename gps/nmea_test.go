package gps

import (
	"strings"
	"testing"
	"time"
)

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		expected string
	}{
		{
			name:     "Simple GGA sentence",
			sentence: "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
			expected: "47",
		},
		{
			name:     "Simple RMC sentence",
			sentence: "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W",
			expected: "6A",
		},
		{
			name:     "Single character after $",
			sentence: "$A",
			expected: "41",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := calculateChecksum(tt.sentence); result != tt.expected {
				t.Errorf("calculateChecksum(%q) = %q, want %q", tt.sentence, result, tt.expected)
			}
		})
	}
}

func TestFormatNMEA(t *testing.T) {
	sentence := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	expected := sentence + "*47\r\n"

	if result := formatNMEA(sentence); result != expected {
		t.Errorf("formatNMEA(%q) = %q, want %q", sentence, result, expected)
	}
}

// verifyChecksum checks the checksum carried by a formatted sentence.
func verifyChecksum(t *testing.T, sentence string) {
	t.Helper()
	body, sum, ok := strings.Cut(strings.TrimSuffix(sentence, "\r\n"), "*")
	if !ok {
		t.Fatalf("Sentence has no checksum: %q", sentence)
	}
	if want := calculateChecksum(body); sum != want {
		t.Errorf("Checksum mismatch in %q: want %s", sentence, want)
	}
}

func createTestPosition() Position {
	return Position{
		Latitude:  37.7749,
		Longitude: -122.4194,
		Altitude:  45.0,
		Speed:     10.0,
		Course:    270.0,
		Accuracy:  DefaultAccuracy,
		Timestamp: time.Date(2024, 3, 15, 12, 34, 56, 780000000, time.UTC),
	}
}

func TestEncodeSentenceSet(t *testing.T) {
	e := NewNMEAEncoder(8, 1)
	sentences := e.Encode(createTestPosition())

	prefixes := []string{"$GPGGA", "$GPRMC", "$GPGLL", "$GPVTG", "$GPGSA", "$GPGSV", "$GPGSV", "$GPZDA"}
	if len(sentences) != len(prefixes) {
		t.Fatalf("Expected %d sentences, got %d", len(prefixes), len(sentences))
	}
	for i, s := range sentences {
		if !strings.HasPrefix(s, prefixes[i]+",") {
			t.Errorf("sentence %d: expected %s, got %q", i, prefixes[i], s)
		}
		if !strings.HasSuffix(s, "\r\n") {
			t.Errorf("sentence %d: missing CRLF", i)
		}
		verifyChecksum(t, s)
	}
}

func TestEncodeGGA(t *testing.T) {
	e := NewNMEAEncoder(8, 1)
	gga := e.Encode(createTestPosition())[0]

	expectedParts := []string{
		"$GPGGA,123456,",
		"3746.4940,N",
		"12225.1640,W",
		",1,08,1.2,45.0,M,",
	}
	for _, part := range expectedParts {
		if !strings.Contains(gga, part) {
			t.Errorf("GGA %q does not contain %q", gga, part)
		}
	}
}

func TestEncodeRMCAndVTGSpeed(t *testing.T) {
	e := NewNMEAEncoder(8, 1)
	sentences := e.Encode(createTestPosition())

	// 10 m/s is 19.4 knots, 36.0 km/h
	if rmc := sentences[1]; !strings.Contains(rmc, ",A,") || !strings.Contains(rmc, ",19.4,270.0,150324,") {
		t.Errorf("Unexpected RMC %q", rmc)
	}
	if vtg := sentences[3]; !strings.Contains(vtg, "270.0,T,,M,19.4,N,36.0,K,A") {
		t.Errorf("Unexpected VTG %q", vtg)
	}
}

func TestEncodeSouthernEasternHemispheres(t *testing.T) {
	pos := createTestPosition()
	pos.Latitude = -33.8688
	pos.Longitude = 151.2093

	gll := NewNMEAEncoder(4, 1).Encode(pos)[2]
	if !strings.Contains(gll, ",S,") || !strings.Contains(gll, ",E,") {
		t.Errorf("Expected S/E hemispheres in %q", gll)
	}
	if !strings.Contains(gll, "123456.78") {
		t.Errorf("Expected hundredths of a second in %q", gll)
	}
}

func TestEncodeGSVPagination(t *testing.T) {
	tests := []struct {
		satellites int
		sentences  int
	}{
		{1, 1},
		{4, 1},
		{5, 2},
		{12, 3},
	}

	for _, tt := range tests {
		e := NewNMEAEncoder(tt.satellites, 3)
		var gsv []string
		for _, s := range e.Encode(createTestPosition()) {
			if strings.HasPrefix(s, "$GPGSV") {
				gsv = append(gsv, s)
			}
		}
		if len(gsv) != tt.sentences {
			t.Errorf("%d satellites: expected %d GSV sentences, got %d", tt.satellites, tt.sentences, len(gsv))
		}
		for _, s := range gsv {
			// four satellite blocks of four fields after the three header fields
			body, _, _ := strings.Cut(s, "*")
			if n := strings.Count(body, ","); n != 3+16 {
				t.Errorf("Expected 19 commas in %q, got %d", s, n)
			}
		}
	}
}

func TestSatelliteDriftStaysInRange(t *testing.T) {
	e := NewNMEAEncoder(12, 42)
	for i := 0; i < 500; i++ {
		e.Encode(createTestPosition())
	}

	for _, sat := range e.Satellites() {
		if sat.Elevation < 5 || sat.Elevation > 85 {
			t.Errorf("satellite %d: elevation %d out of range", sat.ID, sat.Elevation)
		}
		if sat.Azimuth < 0 || sat.Azimuth >= 360 {
			t.Errorf("satellite %d: azimuth %d out of range", sat.ID, sat.Azimuth)
		}
		if sat.SNR < 15 || sat.SNR > 55 {
			t.Errorf("satellite %d: SNR %d out of range", sat.ID, sat.SNR)
		}
	}
}

func TestEncodeNoFix(t *testing.T) {
	sentences := NewNMEAEncoder(8, 1).EncodeNoFix(createTestPosition().Timestamp)

	if len(sentences) != 4 {
		t.Fatalf("Expected 4 sentences, got %d", len(sentences))
	}
	if !strings.Contains(sentences[0], ",0,00,") {
		t.Errorf("Expected fix quality 0 in %q", sentences[0])
	}
	if !strings.Contains(sentences[1], ",V,") {
		t.Errorf("Expected void status in %q", sentences[1])
	}
	for _, s := range sentences {
		verifyChecksum(t, s)
	}
}

func BenchmarkEncode(b *testing.B) {
	e := NewNMEAEncoder(12, 1)
	pos := createTestPosition()
	for i := 0; i < b.N; i++ {
		e.Encode(pos)
	}
}
