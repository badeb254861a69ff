package main

import (
	"os"

	"github.com/soundprediction/zonegraph/cmd/zonegraph"
)

func main() {
	if err := zonegraph.Execute(); err != nil {
		os.Exit(1)
	}
}
