// Command kmares runs the KMA-RES study assistant backend: the AI proxy,
// the timetable reminder scanner and their command-line tools.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kmares:", err)
		os.Exit(1)
	}
}
