// Package serial opens the link to the controller. Native ports go through
// github.com/tarm/serial.
package serial

import (
	"errors"
	"io"
	"time"
)

// ErrNoDevice is returned by Open for an empty device path
var ErrNoDevice = errors.New("no serial device configured")

// Port is a byte stream to the MCU
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unwritten output
	Flush() error
}

// Config holds serial port settings
type Config struct {
	// Device path, e.g. /dev/ttyACM0 or COM3
	Device string

	// Baud rate; USB CDC ignores it
	Baud int

	// ReadTimeout bounds each Read; 0 blocks
	ReadTimeout time.Duration
}

// DefaultBaud is the usual Klipper-style link rate
const DefaultBaud = 250000

// DefaultConfig returns settings for device at DefaultBaud
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
