// yomu is a terminal viewer for manga and comic folders.
package main

import (
	"fmt"
	"os"

	"github.com/yomu-app/yomu/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
