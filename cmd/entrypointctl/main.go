package main

import (
	"os"

	"github.com/psantana5/entrypoint/cmd/entrypointctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
