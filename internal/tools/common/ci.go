package common

import (
	"fmt"
	"io"
	"os"
)

// PrintCIResult writes a plain, greppable result block for non-interactive runs.
func PrintCIResult(title string, details []string, err error) int {
	return printCIResult(os.Stdout, title, details, err)
}

func printCIResult(w io.Writer, title string, details []string, err error) int {
	status := "OK"
	if err != nil {
		status = "FAIL"
	}
	fmt.Fprintf(w, "[%s] %s\n", status, title)
	for _, d := range details {
		fmt.Fprintf(w, "  - %s\n", d)
	}
	if err != nil {
		fmt.Fprintf(w, "  error: %v\n", err)
		return 1
	}
	return 0
}
