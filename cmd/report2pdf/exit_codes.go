package main

import (
	"errors"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/wudi/medreport/config"
	"github.com/wudi/medreport/report"
)

// Exit codes for report2pdf.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // PDF written
	ExitGeneral = 1 // Unexpected error
	ExitUsage   = 2 // Invalid flags, config or report text
	ExitIO      = 3 // Input not readable, output not writable
)

var errUsage = errors.New("usage")

// exitCodeFor maps an error chain onto an exit code.
func exitCodeFor(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	if errors.Is(err, errUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, report.ErrInvalidInput) {
		return ExitUsage
	}

	return ExitGeneral
}
