package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-wordwrap"

	"github.com/kdrag0n/bootpack"
)

const wrapCols = 60

func interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// progress returns a step printer, or nil when nobody is watching.
func progress(out io.Writer, quiet bool) func(string) {
	if quiet || !interactive() {
		return nil
	}

	return func(step string) {
		fmt.Fprintf(out, " - %s\n", step)
	}
}

// reportError prints an error as " ! Error <step>!" followed by the cause.
func reportError(out io.Writer, err error) {
	msgs := bootpack.GetErrors(err)
	if len(msgs) == 2 {
		fmt.Fprintf(out, " ! Error %s!\n", msgs[0])
		fmt.Fprintf(out, " ! %s\n", wordwrap.WrapString(msgs[1], wrapCols))
		return
	}

	fmt.Fprintf(out, " ! %s\n", wordwrap.WrapString(err.Error(), wrapCols))
}
