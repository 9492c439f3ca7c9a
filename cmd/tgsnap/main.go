package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nDmitry/tgsnap/internal/app"
)

func main() {
	slog.SetDefault(app.Logger())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
