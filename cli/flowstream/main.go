package main

import (
	"os"

	flowstreamcmder "github.com/papercomputeco/flowstream/cmd/flowstream"
)

func main() {
	cmd := flowstreamcmder.NewFlowstreamCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
