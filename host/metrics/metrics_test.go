package metrics

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"sysspeed/core"
	"sysspeed/host/mcu"
)

func TestObserveLoad(t *testing.T) {
	validBefore := testutil.ToFloat64(LoadSamples.WithLabelValues("true"))
	awakeBefore := testutil.ToFloat64(AwakeCycles)

	ObserveLoad(mcu.LoadReport{Valid: true, Percent: 25, AwakeCycles: 100, AsleepCycles: 300})

	if got := testutil.ToFloat64(LoadPercent); got != 25 {
		t.Errorf("load percent = %v", got)
	}
	if got := testutil.ToFloat64(AwakeCycles) - awakeBefore; got != 100 {
		t.Errorf("awake delta = %v", got)
	}
	if got := testutil.ToFloat64(LoadSamples.WithLabelValues("true")) - validBefore; got != 1 {
		t.Errorf("valid samples delta = %v", got)
	}
}

func TestObserveEmptyEpoch(t *testing.T) {
	ObserveLoad(mcu.LoadReport{Valid: true, Percent: 40, AwakeCycles: 4, AsleepCycles: 6})
	invalidBefore := testutil.ToFloat64(LoadSamples.WithLabelValues("false"))

	ObserveLoad(mcu.LoadReport{})

	if got := testutil.ToFloat64(LoadPercent); got != 40 {
		t.Errorf("empty epoch overwrote load percent: %v", got)
	}
	if got := testutil.ToFloat64(LoadSamples.WithLabelValues("false")) - invalidBefore; got != 1 {
		t.Errorf("invalid samples delta = %v", got)
	}
}

func TestObservePLL(t *testing.T) {
	ObservePLL(core.PLLConfig{M: 8, N: 180, P: 2, Q: 7, R: 2})
	if got := testutil.ToFloat64(PLLField.WithLabelValues("n")); got != 180 {
		t.Errorf("n = %v", got)
	}

	before := testutil.ToFloat64(PLLSwitches.WithLabelValues("pll_timeout"))
	ObservePLLResult(mcu.PLLResult{Status: "pll_timeout", Code: 3, ClockHz: 180000000})
	if got := testutil.ToFloat64(PLLSwitches.WithLabelValues("pll_timeout")) - before; got != 1 {
		t.Errorf("switch delta = %v", got)
	}
	if got := testutil.ToFloat64(ClockHz); got != 180000000 {
		t.Errorf("clock = %v", got)
	}
}

func TestObserveShutdown(t *testing.T) {
	ObserveShutdown(true)
	if testutil.ToFloat64(Shutdown) != 1 {
		t.Error("shutdown gauge not set")
	}
	ObserveShutdown(false)
	if testutil.ToFloat64(Shutdown) != 0 {
		t.Error("shutdown gauge not cleared")
	}
}

func TestServer(t *testing.T) {
	s := NewServer("127.0.0.1:0", zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	ObserveClock(16000000)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	resp, err = http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "sysspeed_clock_hz 1.6e+07") {
		t.Errorf("/metrics missing clock gauge:\n%s", body)
	}
}
