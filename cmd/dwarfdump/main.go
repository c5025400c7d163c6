package main

import (
	"fmt"
	"os"

	"github.com/jimmychang851129/pstack/cmd/dwarfdump/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
