// Command fsmctl validates, renders, simulates and watches state machine
// graph assets.
//
//	fsmctl validate [-strict] [-fix] [-yes] [-vocabulary demo] files...
//	fsmctl render [-format mermaid|dot] [-direction TD|LR|BT|RL] [-o file] file
//	fsmctl simulate [-ticks N] [-dt D] [-seed S] [-set Pred=true,...] [-script file.tengo] file
//	fsmctl simulate -demo
//	fsmctl list [dir]
//	fsmctl watch [-metrics addr] [-set Pred=true,...] [dir...]
//
// A bare graph name such as "guard" refers to the bundled sample graphs.
package main

import (
	"context"
	"os"

	"github.com/rainbowassets/gamefsm/script"
)

func main() {
	s := script.New("fsmctl")

	s.Run(func(ctx context.Context, args []string) error {
		return newApp(os.Stdout, s.OnShutdown).run(ctx, args)
	})
}
