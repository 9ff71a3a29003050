package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/mandelctl/internal/app"
	"github.com/danmuck/mandelctl/internal/form"
	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/selection"
)

const shellHelp = `commands:
  press X Y | drag X Y | move X Y | leave   pointer events on the canvas
  clear                                      drop the selection
  selection                                  show the selection and next window
  set FIELD VALUE                            edit a request field
  color KIND                                 greyscale, rgreyscale, colorized or red
  fields                                     show every field
  render                                     render and wait
  start | wait | cancel                      render in the background
  view                                       show the confirmed window
  preview PATH                               write the canvas to a PNG
  quit`

var errQuit = errors.New("quit")

func shellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Drive the render loop from line commands on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			return withEngine(cmd, cfg, func(ctrl *app.Controller, out io.Writer) error {
				sh := &shell{cmd: cmd, ctrl: ctrl, out: out}
				return sh.run(cmd.InOrStdin())
			})
		},
	}
}

type shell struct {
	cmd  *cobra.Command
	ctrl *app.Controller
	out  io.Writer
}

func (s *shell) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		args := strings.Fields(scanner.Text())
		if len(args) == 0 || strings.HasPrefix(args[0], "#") {
			continue
		}
		err := s.exec(args)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	if s.ctrl.Busy() {
		s.ctrl.Cancel()
		_, _ = s.ctrl.Complete()
	}
	return scanner.Err()
}

func (s *shell) exec(args []string) error {
	switch args[0] {
	case "press", "drag", "move":
		x, y, err := point(args)
		if err != nil {
			return err
		}
		kinds := map[string]selection.EventKind{
			"press": selection.EventPress,
			"drag":  selection.EventDrag,
			"move":  selection.EventMove,
		}
		s.ctrl.HandleEvent(selection.Event{Kind: kinds[args[0]], X: x, Y: y})
		return nil
	case "leave":
		s.ctrl.HandleEvent(selection.Event{Kind: selection.EventExit})
		return nil
	case "clear":
		s.ctrl.Region().Clear()
		return nil
	case "selection":
		return s.selection()
	case "set":
		if len(args) != 3 {
			return errors.New("usage: set FIELD VALUE")
		}
		field, err := form.ParseField(args[1])
		if err != nil {
			return err
		}
		return s.ctrl.Form().Set(field, args[2])
	case "color":
		if len(args) != 2 {
			return errors.New("usage: color KIND")
		}
		kind, err := protocol.ParseColorKind(args[1])
		if err != nil {
			return err
		}
		s.ctrl.Form().SetColorKind(kind)
		return nil
	case "fields":
		s.fields()
		return nil
	case "render":
		return renderAndReport(s.cmd, s.ctrl, s.out, "")
	case "start":
		_, err := s.ctrl.Trigger(s.cmd.Context())
		return err
	case "wait":
		done, err := s.ctrl.Complete()
		if err != nil {
			return err
		}
		report(s.out, s.ctrl, done)
		return nil
	case "cancel":
		if !s.ctrl.Busy() {
			return app.ErrNoTask
		}
		s.ctrl.Cancel()
		return nil
	case "view":
		printWindow(s.out, s.ctrl)
		if ref := s.ctrl.Output(); ref != "" {
			fmt.Fprintf(s.out, "output %s\n", ref)
		}
		return nil
	case "preview":
		if len(args) != 2 {
			return errors.New("usage: preview PATH")
		}
		return writePreview(s.ctrl, args[1])
	case "help":
		fmt.Fprintln(s.out, shellHelp)
		return nil
	case "quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", args[0])
	}
}

func (s *shell) selection() error {
	rect, ok := s.ctrl.Region().Selection()
	if !ok {
		fmt.Fprintln(s.out, "selection none")
		return nil
	}
	fmt.Fprintf(s.out, "selection x=%d y=%d w=%d h=%d\n", rect.Left, rect.Top, rect.Width, rect.Height)
	next, _, err := s.ctrl.NextWindow()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "next center=(%s,%s) radius=%s\n",
		protocol.FormatReal(next.CenterX), protocol.FormatReal(next.CenterY), protocol.FormatReal(next.Radius))
	return nil
}

func (s *shell) fields() {
	fm := s.ctrl.Form()
	fmt.Fprintf(s.out, "%-14s %s\n", "color", fm.ColorKind())
	for _, field := range form.Fields() {
		if !fm.Applicable(field) {
			continue
		}
		line := fmt.Sprintf("%-14s %s", field.Key(), fm.Value(field))
		if err := fm.FieldError(field); err != nil {
			line += "  (invalid)"
		}
		fmt.Fprintln(s.out, line)
	}
}

func point(args []string) (int, int, error) {
	if len(args) != 3 {
		return 0, 0, fmt.Errorf("usage: %s X Y", args[0])
	}
	x, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q", args[1])
	}
	y, err := strconv.Atoi(args[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y %q", args[2])
	}
	return x, y, nil
}
