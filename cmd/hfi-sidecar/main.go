// hfi-sidecar is the reference host binary for the fault-injection engine:
// a plain net/http server that proves pkg/hostapi.Capabilities is narrow
// enough to run the engine outside of a WASM/Envoy filter (see
// pkg/nethost). Its serve command reverse-proxies to the URL given by
// --upstream, with the engine wrapped around that proxy.
package main

import (
	"fmt"
	"os"

	"github.com/hfi-sidecar/engine/pkg/cli"
)

// Build-time variables set via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.Date = Date
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
