package main

import (
	"os"

	"github.com/annexport/annexport/cmd/annexport/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr(err)
		os.Exit(1)
	}
}
