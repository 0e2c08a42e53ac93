package demo

import (
	"log/slog"
	"strings"

	"github.com/rainbowassets/gamefsm/logger"
	"github.com/rainbowassets/gamefsm/statemachine"
)

// InputReader answers InputActionPressed(action).
type InputReader struct {
	input InputSource
}

var _ statemachine.PredicateEvaluator = (*InputReader)(nil)

func NewInputReader(input InputSource) *InputReader {
	return &InputReader{input: input}
}

func (r *InputReader) Evaluate(kind statemachine.PredicateKind, params []string) (bool, bool) {
	if kind != statemachine.PredicateInputActionPressed {
		return false, false
	}

	if len(params) == 0 {
		return false, true
	}

	return r.input.WasPressed(params[0]), true
}

// FreeLooker performs FreeLook: it walks in the direction of the move stick
// relative to the camera, on the ground plane.
type FreeLooker struct {
	mover  *Mover
	input  InputSource
	camera Camera
}

var _ statemachine.ActionPerformer = (*FreeLooker)(nil)

func NewFreeLooker(mover *Mover, input InputSource, camera Camera) *FreeLooker {
	return &FreeLooker{mover: mover, input: input, camera: camera}
}

func (f *FreeLooker) PerformAction(kind statemachine.ActionKind, _ []string) {
	if kind != statemachine.ActionFreeLook {
		return
	}

	x, y := f.input.Axis()

	direction := f.camera.Right().Scale(x).Add(f.camera.Forward().Scale(y)).Flat()
	if direction.Len() == 0 {
		return
	}

	f.mover.MoveTo(f.mover.Position().Add(direction), 1)
}

// MessagePrinter performs PrintMessage by logging its parameters joined by
// spaces.
type MessagePrinter struct {
	log *slog.Logger
}

var _ statemachine.ActionPerformer = (*MessagePrinter)(nil)

// NewMessagePrinter logs to log, or to the default logger when log is nil.
func NewMessagePrinter(log *slog.Logger) *MessagePrinter {
	if log == nil {
		log = logger.Get()
	}

	return &MessagePrinter{log: log}
}

func (p *MessagePrinter) PerformAction(kind statemachine.ActionKind, params []string) {
	if kind == statemachine.ActionPrintMessage {
		p.log.Info(strings.Join(params, " "))
	}
}
