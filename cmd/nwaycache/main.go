// Command nwaycache replays put/get scripts against an N-way cache and runs
// synthetic workloads with a Prometheus endpoint.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
