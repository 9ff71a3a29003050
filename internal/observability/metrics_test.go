package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danmuck/mandelctl/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordSession("rendered", 120*time.Millisecond)
	RecordExchange("render")
	RecordExchange("progress")
	RecordOutputRetry()
	RecordBusy()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]bool{}
	for _, mf := range families {
		seen[mf.GetName()] = true
	}
	for _, name := range []string{
		"mandelctl_session_total",
		"mandelctl_session_duration_seconds",
		"mandelctl_protocol_exchanges_total",
		"mandelctl_output_retries_total",
		"mandelctl_session_busy_total",
	} {
		if !seen[name] {
			t.Fatalf("missing metric family=%q", name)
		}
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	testlog.Start(t)
	RecordExchange("output")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `mandelctl_protocol_exchanges_total{command="output"}`) {
		t.Fatalf("unexpected metrics body=%s", body)
	}
}
