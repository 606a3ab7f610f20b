package main

import (
	"fmt"
	"os"

	"github.com/temirov/contentaudit/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%s\n"
)

// main executes the contentaudit command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, cli.DescribeError(executionError))
		os.Exit(1)
	}
}
