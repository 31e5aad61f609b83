package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess  = 0 // Command completed
	ExitDiverged = 1 // Replay found trips that do not match
	ExitError    = 2 // Usage, configuration or runtime error
)

// divergedError indicates that a replay ran but some trips did not match.
type divergedError struct {
	Diverged int
	Total    int
}

func (e *divergedError) Error() string {
	return fmt.Sprintf("%d of %d trips diverged", e.Diverged, e.Total)
}

// usageError marks malformed command-line input.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return "usage: " + e.msg }

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var diverged *divergedError
		if errors.As(err, &diverged) {
			os.Exit(ExitDiverged)
		}
		os.Exit(ExitError)
	}
}
