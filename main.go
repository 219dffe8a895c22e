package main

import (
	"fmt"
	"os"

	"github.com/ShawonAshraf/find-free-gpu/commands"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	return commands.NewRootCmd(log, nil).Execute()
}
