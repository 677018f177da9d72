package main

import (
	"errors"
	"os"

	"github.com/Azure/covreport/pkg/assistant"
	"github.com/Azure/covreport/pkg/cmd"
)

func main() {
	command := cmd.NewCovReportCommand()
	if err := command.Execute(); err != nil {
		var e *assistant.Error
		if errors.As(err, &e) {
			os.Exit(e.ExitCode)
		}
		os.Exit(assistant.GeneralErrorExitCode)
	}
}
