// Copyright (c) 2024, 0x0BSoD. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/config"
	"github.com/0x0BSoD/greenwood/internal/logger"
)

var (
	configFiles []string

	cfg config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "greenwood",
	Short:         "Greenwood City community website",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if len(configFiles) > 0 {
			cfg, err = config.Load(configFiles...)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
		} else {
			cfg = config.Get()
		}

		log, err = logger.New(cfg.IsProduction(), cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "HCL config files (default ./config.hcl, ./config.local.hcl, ~/.config/greenwood/config.hcl)")

	rootCmd.AddCommand(serveCmd, cleanCmd, verifyComponentsCmd, deployCmd, emailsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "[ERROR]", err)
		}
		os.Exit(1)
	}
}
