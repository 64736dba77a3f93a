package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clockctl.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Device != "/dev/ttyACM0" || cfg.Serial.Baud != 250000 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.Serial.ReadTimeout != 100*time.Millisecond || cfg.Serial.CommandTimeout != 2*time.Second {
		t.Errorf("timeouts = %v %v", cfg.Serial.ReadTimeout, cfg.Serial.CommandTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Monitor.Interval != time.Second || cfg.Metrics.Listen != "" {
		t.Errorf("monitor %+v metrics %+v", cfg.Monitor, cfg.Metrics)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
serial:
  device: /dev/ttyUSB1
  baud: 115200
logging:
  level: debug
  format: json
monitor:
  interval: 250ms
  firmware_reports: true
metrics:
  listen: ":9101"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Device != "/dev/ttyUSB1" || cfg.Serial.Baud != 115200 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Monitor.Interval != 250*time.Millisecond || !cfg.Monitor.FirmwareReports {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}
	if cfg.Metrics.Listen != ":9101" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}

	port := cfg.Serial.Port()
	if port.Device != "/dev/ttyUSB1" || port.ReadTimeout != 100*time.Millisecond {
		t.Errorf("Port() = %+v", port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "serial:\n  device: /dev/ttyUSB1\n")
	t.Setenv("CLOCKCTL_SERIAL_DEVICE", "/dev/ttyACM3")
	t.Setenv("CLOCKCTL_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Device != "/dev/ttyACM3" || cfg.Logging.Level != "warn" {
		t.Errorf("env not applied: %+v %+v", cfg.Serial, cfg.Logging)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"baud", "serial:\n  baud: 0\n", "baud"},
		{"level", "logging:\n  level: loud\n", "log level"},
		{"format", "logging:\n  format: xml\n", "log format"},
		{"interval", "monitor:\n  interval: 10us\n", "monitor interval"},
		{"device", "serial:\n  device: \"\"\n", "serial device"},
		{"timeout", "serial:\n  command_timeout: 0s\n", "command timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestSimulateNeedsNoDevice(t *testing.T) {
	cfg, err := Load(writeConfig(t, "serial:\n  device: \"\"\n  simulate: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Serial.Simulate {
		t.Error("simulate not set")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	if _, err := Load(writeConfig(t, "serial: [\n")); err == nil {
		t.Error("malformed YAML accepted")
	}
}
