package main

import (
	"io"
	"os"
	"strings"

	"rental-registry/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:          "rental-registry",
		Short:        "Rental unit hierarchy and assignment registry",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env, .env.local)")

	load := func() (config.Config, *logrus.Logger, error) {
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return config.Config{}, nil, err
		}
		return cfg, newLogger(cfg), nil
	}

	cmd.AddCommand(newServeCmd(load), newMigrateCmd(load))
	return cmd
}

type loadFunc func() (config.Config, *logrus.Logger, error)

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "silent":
		logger.SetOutput(io.Discard)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
