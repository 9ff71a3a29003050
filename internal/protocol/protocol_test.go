package protocol

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func validRequest() RenderRequest {
	return RenderRequest{
		Iterations:    500,
		Width:         800,
		Height:        800,
		Supersampling: 1,
		CenterX:       0,
		CenterY:       0,
		Radius:        2,
		Color:         Greyscale(),
	}
}

func TestEncodeRenderMatchesWireGrammar(t *testing.T) {
	line, err := EncodeRender(validRequest())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if line != "render 500 800 800 1 0.0 0.0 2.0 greyscale" {
		t.Fatalf("unexpected line=%q", line)
	}
}

func TestEncodeColorVariants(t *testing.T) {
	cases := []struct {
		fn   ColorFunction
		want string
	}{
		{Greyscale(), "greyscale"},
		{ReversedGreyscale(), "rgreyscale"},
		{Colorized(0, 32), "color(0,32.0)"},
		{Red(2047, -1.25), "red(2047,-1.25)"},
	}
	for _, tc := range cases {
		if got := EncodeColor(tc.fn); got != tc.want {
			t.Fatalf("EncodeColor(%+v) got=%q want=%q", tc.fn, got, tc.want)
		}
	}
}

func TestFormatReal(t *testing.T) {
	cases := map[float64]string{
		0:          "0.0",
		2:          "2.0",
		-0.75:      "-0.75",
		1e-7:       "0.0000001",
		-0.7436438: "-0.7436438",
	}
	for v, want := range cases {
		if got := FormatReal(v); got != want {
			t.Fatalf("FormatReal(%v) got=%q want=%q", v, got, want)
		}
	}
}

func TestValidateRejectsEveryBadField(t *testing.T) {
	req := RenderRequest{
		Supersampling: 9,
		CenterX:       math.NaN(),
		Radius:        0,
		Color:         Colorized(2048, math.Inf(1)),
	}
	err := req.Validate()
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if !errors.Is(err, ErrInvalidColorSpec) {
		t.Fatalf("expected wrapped ErrInvalidColorSpec, got %v", err)
	}
	for _, want := range []string{"iterations", "width", "height", "supersampling", "center", "radius", "shift"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in %v", want, err)
		}
	}
	if _, err := EncodeRender(req); err == nil {
		t.Fatalf("invalid request must not encode")
	}
}

func TestValidateColorOnlyChecksParameterizedKinds(t *testing.T) {
	req := validRequest()
	req.Color = ColorFunction{Kind: ColorGreyscale, Shift: -5, Scale: math.NaN()}
	if err := req.Validate(); err != nil {
		t.Fatalf("greyscale ignores shift/scale, got %v", err)
	}
	req.Color = ColorFunction{Kind: ColorKind(42)}
	if err := req.Validate(); !errors.Is(err, ErrInvalidColorSpec) {
		t.Fatalf("expected unknown kind rejection, got %v", err)
	}
}

func TestDecodeProgress(t *testing.T) {
	cases := []struct {
		line     string
		kind     ProgressKind
		fraction float64
	}{
		{"0", ProgressRunning, 0},
		{"37.5", ProgressRunning, 0.375},
		{"100\r", ProgressRunning, 1},
		{"100.5", ProgressDone, 1},
		{" error(4) ", ProgressNoOperation, 0},
	}
	for _, tc := range cases {
		got, err := DecodeProgress(tc.line)
		if err != nil {
			t.Fatalf("DecodeProgress(%q): %v", tc.line, err)
		}
		if got.Kind != tc.kind || got.Fraction() != tc.fraction {
			t.Fatalf("DecodeProgress(%q) got=%+v fraction=%v", tc.line, got, got.Fraction())
		}
	}
}

func TestDecodeProgressNoOperationIsDistinctFromZero(t *testing.T) {
	noop, _ := DecodeProgress(SentinelNoOperation)
	zero, _ := DecodeProgress("0")
	if noop.Kind == zero.Kind {
		t.Fatalf("no-operation must not look like numeric progress")
	}
}

func TestDecodeProgressMalformed(t *testing.T) {
	for _, line := range []string{"", "abc", "NaN", "-1", "error(5)"} {
		if _, err := DecodeProgress(line); !errors.Is(err, ErrMalformedReply) {
			t.Fatalf("DecodeProgress(%q) expected ErrMalformedReply, got %v", line, err)
		}
	}
}

func TestDecodeOutput(t *testing.T) {
	if got := DecodeOutput("error(6.2)\n"); got.Kind != OutputPending {
		t.Fatalf("unexpected pending reply: %+v", got)
	}
	if got := DecodeOutput("error(5)"); got.Kind != OutputNone || got.Ref != "" {
		t.Fatalf("unexpected none reply: %+v", got)
	}
	if got := DecodeOutput("/tmp/out.png"); got.Kind != OutputReady || got.Ref != "/tmp/out.png" {
		t.Fatalf("unexpected ready reply: %+v", got)
	}
}

func TestDecodeRenderReply(t *testing.T) {
	if ok, _ := DecodeRenderReply("ok\r\n"); !ok {
		t.Fatalf("expected ok to be accepted")
	}
	ok, msg := DecodeRenderReply("error(2.7)")
	if ok || msg != "error(2.7)" {
		t.Fatalf("unexpected rejection ok=%v msg=%q", ok, msg)
	}
	if cause, known := DescribeEngineError(msg); !known || !strings.Contains(cause, "radius") {
		t.Fatalf("unexpected cause=%q known=%v", cause, known)
	}
	if _, known := DescribeEngineError("error(99)"); known {
		t.Fatalf("unexpected known cause for error(99)")
	}
}

func TestParseColorFunctionRoundTrip(t *testing.T) {
	for _, fn := range []ColorFunction{Greyscale(), ReversedGreyscale(), Colorized(12, 32.5), Red(0, -3)} {
		got, err := ParseColorFunction(EncodeColor(fn))
		if err != nil {
			t.Fatalf("parse %q: %v", EncodeColor(fn), err)
		}
		if got != fn {
			t.Fatalf("round trip got=%+v want=%+v", got, fn)
		}
	}
}

func TestParseColorFunctionRejects(t *testing.T) {
	for _, spec := range []string{"blue", "color", "color(1)", "color(1,2", "greyscale(1,2)", "red(x,1)", "red(1,y)", "red(4000,1)"} {
		if _, err := ParseColorFunction(spec); !errors.Is(err, ErrInvalidColorSpec) {
			t.Fatalf("ParseColorFunction(%q) expected ErrInvalidColorSpec, got %v", spec, err)
		}
	}
}

func TestParseColorKindDisplayNames(t *testing.T) {
	for _, kind := range []ColorKind{ColorGreyscale, ColorReversedGreyscale, ColorColorized, ColorRed} {
		got, err := ParseColorKind(kind.String())
		if err != nil || got != kind {
			t.Fatalf("ParseColorKind(%q) got=%v err=%v", kind.String(), got, err)
		}
	}
}

func TestDescribeEngineError(t *testing.T) {
	cause, ok := DescribeEngineError(" error(3.2)\n")
	if !ok || cause != "radius out of range" {
		t.Fatalf("unexpected cause=%q ok=%v", cause, ok)
	}
	if _, ok := DescribeEngineError("error(9)"); ok {
		t.Fatalf("unexpected cause for unknown code")
	}
}
