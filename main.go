package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/raine/estate-pricer/internal/cli"
	"github.com/rs/zerolog"
)

var version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := fang.Execute(
		context.Background(),
		cli.NewRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
