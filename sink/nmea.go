package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"go.bug.st/serial"
)

// NMEASink writes the NMEA sentence set of every fix to a writer.
type NMEASink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *gps.NMEAEncoder
	now    func() time.Time
}

// NewNMEASink writes to w. The writer is not closed by Close.
func NewNMEASink(w io.Writer, enc *gps.NMEAEncoder) *NMEASink {
	return &NMEASink{w: w, enc: enc, now: time.Now}
}

// OpenSerial opens a serial port at baud with 8N1 framing, as GPS
// receivers use.
func OpenSerial(portName string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return port, nil
}

// ListSerialPorts returns the serial ports present on the system.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// NewSerialSink opens portName and writes NMEA to it. Close closes the port.
func NewSerialSink(portName string, baud int, enc *gps.NMEAEncoder) (*NMEASink, error) {
	port, err := OpenSerial(portName, baud)
	if err != nil {
		return nil, err
	}
	s := NewNMEASink(port, enc)
	s.closer = port
	return s, nil
}

func (s *NMEASink) Send(ctx context.Context, p gps.SimulationPoint) error {
	sentences := s.enc.Encode(gps.FixAt(p, s.now()))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, strings.Join(sentences, "")); err != nil {
		return fmt.Errorf("writing NMEA: %w", err)
	}
	return nil
}

func (s *NMEASink) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
