package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/mandelctl/internal/testutil/enginetest"
	"github.com/danmuck/mandelctl/internal/testutil/testlog"
)

// runCLI executes the root command with args and stdin, returning stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fastConfig points the CLI at e without poll or retry delays.
func fastConfig(t *testing.T, e *enginetest.Engine) string {
	t.Helper()
	return writeConfig(t, fmt.Sprintf(`
address = %q
poll_interval_ms = 0
output_retry_initial = "0s"
output_retry_max = "0s"
`, e.Addr()))
}

func parseNext(t *testing.T, out string) (float64, float64, float64) {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "next ") {
			continue
		}
		var cx, cy, r float64
		if _, err := fmt.Sscanf(line, "next center=(%g,%g) radius=%g", &cx, &cy, &r); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		return cx, cy, r
	}
	t.Fatalf("no next window in output=%q", out)
	return 0, 0, 0
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRenderCommandPrintsProgressAndOutput(t *testing.T) {
	testlog.Start(t)

	e := enginetest.Start(t)
	e.Script("render", "ok")
	e.Script("progress", "50", "101")
	e.Script("output", "error(6.2)", "/renders/a.png")

	out, err := runCLI(t, "", "render", "--config", fastConfig(t, e),
		"--set", "iterations=100", "--color", "greyscale")
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	if got := e.Requests()[0]; got != "render 100 1000 1000 1 0.0 0.0 2.0 greyscale" {
		t.Fatalf("unexpected request=%q", got)
	}
	for _, want := range []string{"progress 50%", "progress 100%", "output /renders/a.png", "window center=(0.0,0.0) radius=2.0 frame=1000x1000", "image unavailable"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output=%q", want, out)
		}
	}
	if n := e.Count("output"); n != 2 {
		t.Fatalf("unexpected output count=%d", n)
	}
}

func TestRenderCommandReportsRejection(t *testing.T) {
	testlog.Start(t)

	e := enginetest.Start(t)
	e.Script("render", "error(2)")

	out, err := runCLI(t, "", "render", "--config", fastConfig(t, e))
	if err == nil {
		t.Fatalf("expected rejection, output=%q", out)
	}
	if e.Count("progress") != 0 {
		t.Fatalf("unexpected requests=%v", e.Requests())
	}
}

func TestRenderCommandRefusesInvalidFieldBeforeDialing(t *testing.T) {
	testlog.Start(t)

	e := enginetest.Start(t)
	_, err := runCLI(t, "", "render", "--config", fastConfig(t, e), "--set", "supersampling=9")
	if err == nil {
		t.Fatalf("expected invalid field error")
	}
	if n := len(e.Requests()); n != 0 {
		t.Fatalf("unexpected requests=%d", n)
	}
}

func TestZoomDryRunPrintsNextWindow(t *testing.T) {
	testlog.Start(t)

	out, err := runCLI(t, "", "zoom", "--dry-run", "--select", "400,0,799,399",
		"--set", "width=800", "--set", "height=800")
	if err != nil {
		t.Fatalf("zoom: %v", err)
	}
	cx, cy, r := parseNext(t, out)
	if !near(cx, 1) || !near(cy, 1) || !near(r, 1) {
		t.Fatalf("unexpected next window=(%v,%v) r=%v", cx, cy, r)
	}
}

func TestZoomPointSelectionRecentersAndRenders(t *testing.T) {
	testlog.Start(t)

	e := enginetest.Start(t)
	e.Script("render", "ok")
	e.Sticky("progress", "101")
	e.Sticky("output", "/renders/b.png")

	out, err := runCLI(t, "", "zoom", "--config", fastConfig(t, e), "--select", "600,200",
		"--set", "width=800", "--set", "height=800", "--color", "greyscale")
	if err != nil {
		t.Fatalf("zoom: %v\n%s", err, out)
	}
	if got := e.Requests()[0]; got != "render 500 800 800 1 1.0 1.0 2.0 greyscale" {
		t.Fatalf("unexpected request=%q", got)
	}
}

func TestZoomRejectsMalformedSelection(t *testing.T) {
	testlog.Start(t)

	for _, sel := range []string{"1", "1,2,3", "a,b", "1,2,3,x"} {
		if _, err := parseSelection(sel); err == nil {
			t.Fatalf("expected error for selection=%q", sel)
		}
	}
}

func TestZoomHelpDescribesAspectLock(t *testing.T) {
	testlog.Start(t)

	out, err := runCLI(t, "", "zoom", "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out, "largest box of the render\naspect ratio centered inside it") || strings.Contains(out, "widened") {
		t.Fatalf("unexpected zoom help=%q", out)
	}
}

func TestShellRenderThenZoom(t *testing.T) {
	testlog.Start(t)

	e := enginetest.Start(t)
	e.Sticky("render", "ok")
	e.Sticky("progress", "101")
	e.Sticky("output", "/renders/c.png")

	preview := filepath.Join(t.TempDir(), "canvas.png")
	script := strings.Join([]string{
		"set width 800",
		"set height 800",
		"color greyscale",
		"render",
		"press 400 0",
		"drag 799 399",
		"selection",
		"render",
		"view",
		"preview " + preview,
		"quit",
	}, "\n")

	out, err := runCLI(t, script, "shell", "--config", fastConfig(t, e))
	if err != nil {
		t.Fatalf("shell: %v\n%s", err, out)
	}
	reqs := e.Requests()
	var renders []string
	for _, line := range reqs {
		if strings.HasPrefix(line, "render ") {
			renders = append(renders, line)
		}
	}
	if len(renders) != 2 {
		t.Fatalf("unexpected renders=%v", renders)
	}
	if renders[0] != "render 500 800 800 1 0.0 0.0 2.0 greyscale" {
		t.Fatalf("unexpected first render=%q", renders[0])
	}
	var cx, cy, r float64
	if _, err := fmt.Sscanf(renders[1], "render 500 800 800 1 %g %g %g greyscale", &cx, &cy, &r); err != nil {
		t.Fatalf("parse second render=%q: %v", renders[1], err)
	}
	if !near(cx, 1) || !near(cy, 1) || !near(r, 1) {
		t.Fatalf("unexpected zoom window=(%v,%v) r=%v", cx, cy, r)
	}
	if !strings.Contains(out, "selection x=400 y=0 w=399 h=399") {
		t.Fatalf("missing selection in output=%q", out)
	}
	if !strings.Contains(out, "output /renders/c.png") {
		t.Fatalf("missing output in output=%q", out)
	}
	if _, err := os.Stat(preview); err != nil {
		t.Fatalf("preview: %v", err)
	}
}

func TestShellKeepsGoingAfterErrors(t *testing.T) {
	testlog.Start(t)

	e := enginetest.Start(t)
	script := strings.Join([]string{
		"frobnicate",
		"set radius -1",
		"render",
		"set radius 2.0",
		"cancel",
		"fields",
	}, "\n")

	out, err := runCLI(t, script, "shell", "--config", fastConfig(t, e))
	if err != nil {
		t.Fatalf("shell: %v", err)
	}
	if got := strings.Count(out, "error: "); got != 4 {
		t.Fatalf("unexpected error count=%d output=%q", got, out)
	}
	if !strings.Contains(out, "radius         2.0") {
		t.Fatalf("missing radius field in output=%q", out)
	}
	if n := len(e.Requests()); n != 0 {
		t.Fatalf("unexpected requests=%v", e.Requests())
	}
}

func TestVersionShort(t *testing.T) {
	testlog.Start(t)

	out, err := runCLI(t, "", "version", "--short")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("unexpected version output=%q", out)
	}
}
