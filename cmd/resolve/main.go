package main

import (
	"os"

	"github.com/paulgirard/ricardo-gph-analysis/internal/util"
)

func main() {
	util.LoadEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
