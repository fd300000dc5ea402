package location

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// ErrNoFix is returned when the GPS stream ends without a usable GGA fix.
var ErrNoFix = errors.New("no valid GPS data found")

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port        string        // Serial port to which the GPS device is connected
	baudRate    int           // Baud rate for the serial communication
	readTimeout time.Duration // Max time to block waiting for a sentence

	mu     sync.Mutex
	stream io.ReadCloser
	open   func() (io.ReadCloser, error)
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	d := &DeviceSensorProvider{
		port:        port,
		baudRate:    baudRate,
		readTimeout: 5 * time.Second,
	}
	d.open = func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: d.readTimeout})
	}
	return d
}

// NewStreamSensorProvider reads NMEA sentences from an already opened stream.
// Useful for gpsd raw sockets and replaying recorded logs.
func NewStreamSensorProvider(stream io.ReadCloser) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		open: func() (io.ReadCloser, error) { return stream, nil },
	}
}

// GetLocation reads GPS data from the device and returns the device's location.
// The serial port stays open between calls.
func (d *DeviceSensorProvider) GetLocation() (Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		s, err := d.open()
		if err != nil {
			return Location{}, fmt.Errorf("open gps port %s: %w", d.port, err)
		}
		d.stream = s
	}

	loc, err := readFix(d.stream)
	if err != nil && !errors.Is(err, ErrNoFix) {
		// reopen on the next call
		_ = d.stream.Close()
		d.stream = nil
	}
	return loc, err
}

// Close releases the serial port.
func (d *DeviceSensorProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	d.stream = nil
	return err
}

// readFix scans NMEA lines until it finds a GGA sentence with a valid fix.
func readFix(r io.Reader) (Location, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// GPGGA, GNGGA, GLGGA ...
		if len(line) < 6 || line[0] != '$' || line[3:6] != nmea.TypeGGA {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		gga, ok := sentence.(nmea.GGA)
		if !ok || gga.FixQuality == nmea.Invalid {
			continue
		}

		return Location{
			Coordinate: Coordinate{Latitude: gga.Latitude, Longitude: gga.Longitude},
			Accuracy:   gga.HDOP, // Use HDOP as a proxy for accuracy
		}, nil
	}

	if err := scanner.Err(); err != nil {
		return Location{}, err
	}

	return Location{}, ErrNoFix
}
