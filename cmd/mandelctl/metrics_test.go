package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/mandelctl/internal/observability"
	"github.com/danmuck/mandelctl/internal/testutil/testlog"
)

func TestMetricsRouterServesScrape(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(metricsRouter())
	defer srv.Close()
	observability.RecordExchange("progress")

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `mandelctl_protocol_exchanges_total{command="progress"}`) {
		t.Fatalf("unexpected metrics body=%s", body)
	}
}

func TestMetricsRouterOnlyServesMetrics(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(metricsRouter())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status=%d", resp.StatusCode)
	}
}

func TestStartMetricsWithoutAddressIsNoop(t *testing.T) {
	testlog.Start(t)
	stop := startMetrics("")
	stop()
}
