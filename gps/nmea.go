package gps

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	knotsPerMeterPerSecond = 1.943844
	kmhPerKnot             = 1.852

	DefaultSatellites = 8
)

// NMEAEncoder turns fixes into NMEA 0183 sentences. It keeps a simulated
// satellite constellation that drifts slightly on every encoded fix.
type NMEAEncoder struct {
	mu         sync.Mutex
	satellites []Satellite
	rng        *rand.Rand
}

// NewNMEAEncoder creates an encoder with n satellites in view. The seed
// makes the constellation reproducible.
func NewNMEAEncoder(n int, seed int64) *NMEAEncoder {
	if n < 1 {
		n = DefaultSatellites
	}
	e := &NMEAEncoder{rng: rand.New(rand.NewSource(seed))}
	e.initializeSatellites(n)
	return e
}

func (e *NMEAEncoder) initializeSatellites(n int) {
	e.satellites = make([]Satellite, n)
	for i := range e.satellites {
		e.satellites[i] = Satellite{
			ID:        i + 1,
			Elevation: e.rng.Intn(70) + 10, // 10-80 degrees
			Azimuth:   e.rng.Intn(360),
			SNR:       e.rng.Intn(30) + 20, // 20-50 dB
		}
	}
}

func (e *NMEAEncoder) updateSatellites() {
	for i := range e.satellites {
		sat := &e.satellites[i]
		sat.Elevation = clampInt(sat.Elevation+e.rng.Intn(3)-1, 5, 85)
		sat.Azimuth = (sat.Azimuth + e.rng.Intn(3) - 1 + 360) % 360
		sat.SNR = clampInt(sat.SNR+e.rng.Intn(6)-3, 15, 55)
	}
}

// Satellites returns a copy of the current constellation.
func (e *NMEAEncoder) Satellites() []Satellite {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Satellite(nil), e.satellites...)
}

// Encode returns the full sentence set for one fix, in the order GGA, RMC,
// GLL, VTG, GSA, GSV..., ZDA. Each sentence ends with CRLF.
func (e *NMEAEncoder) Encode(pos Position) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updateSatellites()

	ts := pos.Timestamp.UTC()
	sentences := []string{
		e.gga(pos, ts),
		rmc(pos, ts),
		gll(pos, ts),
		vtg(pos),
		e.gsa(),
	}
	sentences = append(sentences, e.gsv()...)
	return append(sentences, zda(ts))
}

// EncodeNoFix returns the sentences a receiver emits before it has a fix.
func (e *NMEAEncoder) EncodeNoFix(ts time.Time) []string {
	ts = ts.UTC()
	return []string{
		formatNMEA(fmt.Sprintf("$GPGGA,%s,,,,,0,00,,,,,,,,,", ts.Format("150405"))),
		formatNMEA(fmt.Sprintf("$GPRMC,%s,V,,,,,,,,%s,,,N", ts.Format("150405"), ts.Format("020106"))),
		formatNMEA(fmt.Sprintf("$GPGLL,,,,,%s,V,N", hundredths(ts))),
		formatNMEA("$GPVTG,,,,,,,,,N"),
	}
}

// calculateChecksum XORs every byte after the leading '$'.
func calculateChecksum(sentence string) string {
	var checksum byte
	for i := 1; i < len(sentence); i++ {
		checksum ^= sentence[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

func formatNMEA(sentence string) string {
	return fmt.Sprintf("%s*%s\r\n", sentence, calculateChecksum(sentence))
}

// latLonFields renders coordinates as DDMM.MMMM,H,DDDMM.MMMM,H.
func latLonFields(lat, lon float64) string {
	latDeg := int(math.Abs(lat))
	latMin := (math.Abs(lat) - float64(latDeg)) * 60
	latHem := "N"
	if lat < 0 {
		latHem = "S"
	}

	lonDeg := int(math.Abs(lon))
	lonMin := (math.Abs(lon) - float64(lonDeg)) * 60
	lonHem := "E"
	if lon < 0 {
		lonHem = "W"
	}

	return fmt.Sprintf("%02d%07.4f,%s,%03d%07.4f,%s", latDeg, latMin, latHem, lonDeg, lonMin, lonHem)
}

func hundredths(ts time.Time) string {
	return fmt.Sprintf("%02d%02d%02d.%02d", ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond()/10000000)
}

func knots(pos Position) float64 {
	return pos.Speed * knotsPerMeterPerSecond
}

func (e *NMEAEncoder) gga(pos Position, ts time.Time) string {
	// fix quality 1, HDOP 1.2, geoid separation 0
	sentence := fmt.Sprintf("$GPGGA,%s,%s,1,%02d,1.2,%.1f,M,0.0,M,,",
		ts.Format("150405"),
		latLonFields(pos.Latitude, pos.Longitude),
		len(e.satellites),
		pos.Altitude)
	return formatNMEA(sentence)
}

func rmc(pos Position, ts time.Time) string {
	sentence := fmt.Sprintf("$GPRMC,%s,A,%s,%.1f,%.1f,%s,,,A",
		ts.Format("150405"),
		latLonFields(pos.Latitude, pos.Longitude),
		knots(pos), pos.Course,
		ts.Format("020106"))
	return formatNMEA(sentence)
}

func gll(pos Position, ts time.Time) string {
	sentence := fmt.Sprintf("$GPGLL,%s,%s,A,A",
		latLonFields(pos.Latitude, pos.Longitude),
		hundredths(ts))
	return formatNMEA(sentence)
}

func vtg(pos Position) string {
	// no magnetic variation is simulated
	sentence := fmt.Sprintf("$GPVTG,%.1f,T,,M,%.1f,N,%.1f,K,A",
		pos.Course, knots(pos), knots(pos)*kmhPerKnot)
	return formatNMEA(sentence)
}

func (e *NMEAEncoder) gsa() string {
	ids := make([]string, 12)
	for i := 0; i < len(e.satellites) && i < 12; i++ {
		ids[i] = fmt.Sprintf("%02d", e.satellites[i].ID)
	}
	// automatic 3D fix; PDOP, HDOP, VDOP
	sentence := fmt.Sprintf("$GPGSA,A,3,%s,2.1,1.2,1.8", strings.Join(ids, ","))
	return formatNMEA(sentence)
}

func (e *NMEAEncoder) gsv() []string {
	total := len(e.satellites)
	count := (total + 3) / 4

	sentences := make([]string, 0, count)
	for n := 1; n <= count; n++ {
		start := (n - 1) * 4
		end := min(start+4, total)

		var b strings.Builder
		fmt.Fprintf(&b, "$GPGSV,%d,%d,%02d", count, n, total)
		for _, sat := range e.satellites[start:end] {
			fmt.Fprintf(&b, ",%02d,%02d,%03d,%02d", sat.ID, sat.Elevation, sat.Azimuth, sat.SNR)
		}
		for i := end - start; i < 4; i++ {
			b.WriteString(",,,,")
		}
		sentences = append(sentences, formatNMEA(b.String()))
	}
	return sentences
}

func zda(ts time.Time) string {
	// local zone is always UTC
	sentence := fmt.Sprintf("$GPZDA,%s,%02d,%02d,%04d,00,00",
		hundredths(ts), ts.Day(), int(ts.Month()), ts.Year())
	return formatNMEA(sentence)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
