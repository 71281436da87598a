package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"autoskip/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printSuggestedFixes(err)
		os.Exit(1)
	}
}

func printSuggestedFixes(err error) {
	var coded *errors.Error
	if !stderrors.As(err, &coded) || len(coded.SuggestedFixes) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "Suggested fixes:")
	for _, fix := range coded.SuggestedFixes {
		fmt.Fprintf(os.Stderr, "  - %s\n", fix.Description)
		if fix.Command != "" {
			fmt.Fprintf(os.Stderr, "    $ %s\n", fix.Command)
		}
	}
}
