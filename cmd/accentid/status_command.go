package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"accentid/internal/deps"
	"accentid/internal/modelhub"
	"accentid/internal/preflight"
)

type statusReport struct {
	ConfigPath   string             `json:"configPath"`
	ConfigExists bool               `json:"configExists"`
	ModelID      string             `json:"modelId"`
	Revision     string             `json:"revision"`
	ModelDir     string             `json:"modelDir"`
	Checks       []preflight.Result `json:"checks"`
	Dependencies []deps.Status      `json:"dependencies"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency, directory, and model status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			hub := modelhub.New(cfg, nil)
			report := statusReport{
				ConfigPath:   ctx.configPath,
				ConfigExists: ctx.configExists,
				ModelID:      hub.ModelID(),
				Revision:     hub.Revision(),
				ModelDir:     hub.Dir(),
				Checks: []preflight.Result{
					preflight.CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
					preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
				},
				Dependencies: preflight.CheckSystemDeps(cfg),
			}
			if cfg.Model.LocalDir == "" {
				report.Checks = append(report.Checks, preflight.CheckDirectoryAccess("Model cache", cfg.Paths.ModelCacheDir))
			}
			model := preflight.CheckModelArtifacts(cmd.Context(), cfg, ctx.httpClient)

			if jsonOutput {
				report.Checks = append(report.Checks, model)
				return writeJSON(cmd, report)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			configDetail := report.ConfigPath
			if !report.ConfigExists {
				configDetail += " (not found; defaults in use)"
			}
			fmt.Fprintln(stdout, renderStatusLine("Config", statusInfo, configDetail, colorize))
			for _, check := range report.Checks {
				fmt.Fprintln(stdout, resultLine(check, statusError, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(report.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Model", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Model", statusInfo, fmt.Sprintf("%s@%s", report.ModelID, report.Revision), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Local model dir", statusInfo, yesNo(cfg.Model.LocalDir != ""), colorize))
			fmt.Fprintln(stdout, resultLine(model, statusWarn, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}
