package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Engine sentinels. They are expected outcomes and must never be surfaced as
// faults.
const (
	SentinelNoOperation   = "error(4)"
	SentinelNoOutput      = "error(5)"
	SentinelOutputPending = "error(6.2)"
)

// ProgressKind classifies a progress reply.
type ProgressKind int

const (
	ProgressRunning ProgressKind = iota
	ProgressDone
	ProgressNoOperation
)

func (k ProgressKind) String() string {
	switch k {
	case ProgressRunning:
		return "running"
	case ProgressDone:
		return "done"
	case ProgressNoOperation:
		return "no_operation"
	default:
		return "unknown"
	}
}

// ProgressReply is a decoded answer to the progress command. Percent is only
// set for running and done replies.
type ProgressReply struct {
	Kind    ProgressKind
	Percent float64
}

// Fraction returns Percent scaled into [0,1].
func (p ProgressReply) Fraction() float64 {
	switch {
	case p.Kind == ProgressDone:
		return 1
	case p.Kind != ProgressRunning:
		return 0
	default:
		return p.Percent / 100
	}
}

// DecodeProgress classifies a progress reply. Values in [0,100] are running,
// values above 100 mean the render finished.
func DecodeProgress(line string) (ProgressReply, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == SentinelNoOperation {
		return ProgressReply{Kind: ProgressNoOperation}, nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) {
		return ProgressReply{}, fmt.Errorf("%w: progress=%q", ErrMalformedReply, trimmed)
	}
	if v < 0 {
		return ProgressReply{}, fmt.Errorf("%w: negative progress=%q", ErrMalformedReply, trimmed)
	}
	if v > 100 {
		return ProgressReply{Kind: ProgressDone, Percent: v}, nil
	}
	return ProgressReply{Kind: ProgressRunning, Percent: v}, nil
}

// OutputKind classifies an output reply.
type OutputKind int

const (
	OutputReady OutputKind = iota
	OutputNone
	OutputPending
)

func (k OutputKind) String() string {
	switch k {
	case OutputReady:
		return "ready"
	case OutputNone:
		return "none"
	case OutputPending:
		return "pending"
	default:
		return "unknown"
	}
}

type OutputReply struct {
	Kind OutputKind
	Ref  string
}

// DecodeOutput classifies an output reply. Any non-sentinel line is the
// artifact reference.
func DecodeOutput(line string) OutputReply {
	trimmed := strings.TrimSpace(line)
	switch trimmed {
	case SentinelOutputPending:
		return OutputReply{Kind: OutputPending}
	case SentinelNoOutput, "":
		return OutputReply{Kind: OutputNone}
	default:
		return OutputReply{Kind: OutputReady, Ref: trimmed}
	}
}

// DecodeRenderReply reports whether the engine accepted a render command.
// On rejection the trimmed reply is returned as the message.
func DecodeRenderReply(line string) (bool, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == ReplyOK {
		return true, ""
	}
	return false, trimmed
}

// ParseColorKind accepts wire tokens and display names, case-insensitively.
func ParseColorKind(name string) (ColorKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "greyscale", "grayscale":
		return ColorGreyscale, nil
	case "rgreyscale", "reversed greyscale", "reversed-greyscale", "reversed_greyscale":
		return ColorReversedGreyscale, nil
	case "color", "colorized":
		return ColorColorized, nil
	case "red":
		return ColorRed, nil
	default:
		return 0, fmt.Errorf("%w: unknown color function %q", ErrInvalidColorSpec, name)
	}
}

// ParseColorFunction parses a colorSpec token such as "color(12,32.0)".
func ParseColorFunction(spec string) (ColorFunction, error) {
	spec = strings.TrimSpace(spec)
	open := strings.IndexByte(spec, '(')
	if open < 0 {
		kind, err := ParseColorKind(spec)
		if err != nil {
			return ColorFunction{}, err
		}
		if kind.Parameterized() {
			return ColorFunction{}, fmt.Errorf("%w: %q requires (shift,scale)", ErrInvalidColorSpec, spec)
		}
		return ColorFunction{Kind: kind}, nil
	}
	if !strings.HasSuffix(spec, ")") {
		return ColorFunction{}, fmt.Errorf("%w: unterminated %q", ErrInvalidColorSpec, spec)
	}
	kind, err := ParseColorKind(spec[:open])
	if err != nil {
		return ColorFunction{}, err
	}
	if !kind.Parameterized() {
		return ColorFunction{}, fmt.Errorf("%w: %q takes no arguments", ErrInvalidColorSpec, spec)
	}
	args := strings.Split(spec[open+1:len(spec)-1], ",")
	if len(args) != 2 {
		return ColorFunction{}, fmt.Errorf("%w: %q needs shift and scale", ErrInvalidColorSpec, spec)
	}
	shift, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return ColorFunction{}, fmt.Errorf("%w: shift %q", ErrInvalidColorSpec, args[0])
	}
	scale, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
	if err != nil {
		return ColorFunction{}, fmt.Errorf("%w: scale %q", ErrInvalidColorSpec, args[1])
	}
	fn := ColorFunction{Kind: kind, Shift: shift, Scale: scale}
	if err := fn.Validate(); err != nil {
		return ColorFunction{}, err
	}
	return fn, nil
}
