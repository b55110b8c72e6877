// Command starprobe generates point catalogs, builds octant indexes over them
// and answers nearest-point queries from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
