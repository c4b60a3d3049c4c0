package main

import (
	"github.com/spf13/cobra"

	"github.com/0x0BSoD/greenwood/internal/deploy"
	"github.com/0x0BSoD/greenwood/internal/tooling"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path...]",
	Short: "Remove build output and on-disk caches",
	Long:  "Removes the configured clean paths (bin/ and .cache/ by default), or the given paths. Missing paths are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := cfg.CleanPaths
		if len(args) > 0 {
			paths = args
		}
		_, err := tooling.Clean(paths, log.Named("clean"))
		return err
	},
}

var (
	componentsManifest string
	componentsDir      string
)

var verifyComponentsCmd = &cobra.Command{
	Use:   "verify-components",
	Short: "Check that every required template component exists",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := tooling.LoadComponents(componentsManifest)
		if err != nil {
			return err
		}
		return tooling.Report(cmd.OutOrStdout(), tooling.VerifyComponents(m, componentsDir))
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Render process-manager configuration",
}

var deployConfig string

var deploySystemdCmd = &cobra.Command{
	Use:   "systemd",
	Short: "Print a systemd unit for the process description",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := deploy.Load(deployConfig)
		if err != nil {
			return err
		}
		return deploy.RenderSystemd(cmd.OutOrStdout(), app)
	},
}

func init() {
	verifyComponentsCmd.Flags().StringVar(&componentsManifest, "manifest", "components.yaml", "component manifest")
	verifyComponentsCmd.Flags().StringVar(&componentsDir, "dir", "internal/web/templates", "template directory")

	deploySystemdCmd.Flags().StringVar(&deployConfig, "config", "deploy/ecosystem.yaml", "process description")
	deployCmd.AddCommand(deploySystemdCmd)
}
