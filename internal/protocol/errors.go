package protocol

import (
	"errors"
	"strings"
)

var (
	ErrInvalidRequest   = errors.New("protocol: invalid render request")
	ErrInvalidColorSpec = errors.New("protocol: invalid color spec")
	ErrMalformedReply   = errors.New("protocol: malformed reply")
)

// engineErrorCauses maps the engine's render rejection codes to readable causes.
var engineErrorCauses = map[string]string{
	"error(1)":   "wrong number of render arguments",
	"error(2.1)": "iterations could not be parsed",
	"error(2.2)": "image width could not be parsed",
	"error(2.3)": "image height could not be parsed",
	"error(2.4)": "supersampling could not be parsed",
	"error(2.5)": "center x could not be parsed",
	"error(2.6)": "center y could not be parsed",
	"error(2.7)": "radius could not be parsed",
	"error(2.8)": "color function could not be parsed",
	"error(3.1)": "supersampling out of range",
	"error(3.2)": "radius out of range",
	"error(4)":   "no operation pending",
	"error(5)":   "no output available",
	"error(6.2)": "output not ready",
}

// DescribeEngineError returns a readable cause for a known engine error line.
func DescribeEngineError(line string) (string, bool) {
	cause, ok := engineErrorCauses[strings.TrimSpace(line)]
	return cause, ok
}
