package protocol

import (
	"strconv"
	"strings"
)

const (
	Greeting = "ready"
	ReplyOK  = "ok"

	CommandRender   = "render"
	CommandProgress = "progress"
	CommandOutput   = "output"
)

// EncodeRender validates req and returns the render command line without the
// trailing newline.
func EncodeRender(req RenderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	parts := []string{
		CommandRender,
		strconv.FormatUint(uint64(req.Iterations), 10),
		strconv.FormatUint(uint64(req.Width), 10),
		strconv.FormatUint(uint64(req.Height), 10),
		strconv.Itoa(req.Supersampling),
		FormatReal(req.CenterX),
		FormatReal(req.CenterY),
		FormatReal(req.Radius),
		EncodeColor(req.Color),
	}
	return strings.Join(parts, " "), nil
}

// EncodeColor returns the colorSpec token for c. It does not validate.
func EncodeColor(c ColorFunction) string {
	switch c.Kind {
	case ColorReversedGreyscale:
		return "rgreyscale"
	case ColorColorized:
		return "color(" + strconv.Itoa(c.Shift) + "," + FormatReal(c.Scale) + ")"
	case ColorRed:
		return "red(" + strconv.Itoa(c.Shift) + "," + FormatReal(c.Scale) + ")"
	default:
		return "greyscale"
	}
}

// FormatReal renders v as the shortest exact decimal, always carrying a
// fractional part (2 -> "2.0").
func FormatReal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
