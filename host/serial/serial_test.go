package serial

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Device != "/dev/ttyACM0" || cfg.Baud != 250000 || cfg.ReadTimeout != 100*time.Millisecond {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
}

func TestOpenWithoutDevice(t *testing.T) {
	if _, err := Open(nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Open(nil) = %v", err)
	}
	if _, err := Open(&Config{Baud: DefaultBaud}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Open(empty) = %v", err)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(DefaultConfig("/nonexistent/tty-sysspeed"))
	if err == nil {
		t.Fatal("opened a missing device")
	}
}
