// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/deckport/deckport/internal/config"
	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root deckport command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deckport",
		Short:         "deckport renders presentations with pluggable backends",
		Long:          "Deckport converts presentation documents to PDF and per-slide images through whichever rendering backend is available and healthy.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			return setupLogging(cmd)
		},
	}

	// Global flags map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("renderer", "", "renderer to use (auto, none, or a provider name)")
	root.PersistentFlags().Bool("allow-network", false, "permit network-delegating renderers")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newRenderCmd(),
		newImagesCmd(),
		newProvidersCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return deckerr.Errorf(deckerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover deckport.yaml from standard locations. No config
		// file is fine, defaults and env vars still apply. Parse or
		// permission errors must surface.
		v.SetConfigName("deckport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/deckport")
		v.AddConfigPath("/etc/deckport")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return deckerr.Errorf(deckerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	if flags.Changed("renderer") {
		if err := v.BindPFlag("renderer", flags.Lookup("renderer")); err != nil {
			return deckerr.Errorf(deckerr.CodeCLIInputInvalid, "binding renderer flag: %w", err)
		}
	}
	if flags.Changed("allow-network") {
		if err := v.BindPFlag("allow_network", flags.Lookup("allow-network")); err != nil {
			return deckerr.Errorf(deckerr.CodeCLIInputInvalid, "binding allow-network flag: %w", err)
		}
	}

	return nil
}

// setupLogging installs the process-wide logger. Diagnostics go to
// stderr; stdout carries only command output.
func setupLogging(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	} else {
		switch viper.GetString("logging.level") {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: level,
	})))
	return nil
}
