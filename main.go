package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"opusedit/cli"
	"opusedit/status"
)

const Development = "DEVELOPMENT"

func run() error {
	dev := os.Getenv(Development) == "true"

	var loggerFunc func() (*zap.Logger, error)
	if dev {
		loggerFunc = func() (*zap.Logger, error) {
			return zap.NewDevelopment()
		}
	} else {
		loggerFunc = func() (*zap.Logger, error) {
			return zap.Config{
				Level:            zap.NewAtomicLevelAt(zap.WarnLevel),
				Development:      false,
				Encoding:         "json",
				EncoderConfig:    zap.NewProductionEncoderConfig(),
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			}.Build()
		}
	}
	logger, err := loggerFunc()
	if err != nil {
		return fmt.Errorf("could not create logger: %w", err)
	}
	defer logger.Sync()

	return cli.NewCommand(logger).Execute()
}

func main() {
	err := run()

	switch {
	case err == nil:
		os.Exit(0)

	case status.CodeOf(err) == status.BadArguments:
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(2)
	}
}
