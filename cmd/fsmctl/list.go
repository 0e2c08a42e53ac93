package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rainbowassets/gamefsm/script"
	"github.com/rainbowassets/gamefsm/statemachine"
)

// list prints the asset names of a directory, the working directory by
// default, in natural order.
func (a *app) list(_ context.Context, args []string) error {
	fs := a.flags("list")
	files := fs.Bool("files", false, "print file paths instead of asset names")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var loader *statemachine.DirLoader

	switch fs.NArg() {
	case 0:
		loader = statemachine.NewDirLoader(os.DirFS("."), ".")
	case 1:
		loader = statemachine.NewDirLoader(os.DirFS(fs.Arg(0)), ".")
	default:
		return script.ExitWithErrorMessage("%v: list takes one directory", errUsage)
	}

	paths, err := loader.Files()
	if err != nil {
		return script.ExitWithError(err)
	}

	if *files {
		for _, path := range paths {
			fmt.Fprintln(a.out, path)
		}

		return nil
	}

	for _, name := range loader.ListAvailable() {
		fmt.Fprintln(a.out, name)
	}

	return nil
}
