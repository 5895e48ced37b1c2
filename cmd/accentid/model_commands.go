package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"accentid/internal/accent"
	"accentid/internal/modelhub"
)

func newModelCommand(ctx *commandContext) *cobra.Command {
	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Model artifact utilities",
	}
	modelCmd.AddCommand(newModelFetchCommand(ctx))
	modelCmd.AddCommand(newModelLabelsCommand())
	return modelCmd
}

func newModelFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download model artifacts into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			hub := modelhub.New(cfg, logger, modelhub.WithClient(ctx.httpClient))
			_, cached := hub.Cached()
			artifacts, err := hub.Ensure(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch model %s: %w", hub.ModelID(), err)
			}

			modelCfg, err := modelhub.LoadModelConfig(artifacts.ConfigPath)
			if err != nil {
				return err
			}
			mismatches, err := modelhub.ValidateLabels(modelCfg.Labels, accent.Labels())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cached {
				fmt.Fprintf(out, "Model %s@%s already cached in %s\n", hub.ModelID(), hub.Revision(), artifacts.Dir)
			} else {
				fmt.Fprintf(out, "Downloaded %s@%s to %s\n", hub.ModelID(), hub.Revision(), artifacts.Dir)
			}
			for _, m := range mismatches {
				fmt.Fprintf(out, "Warning: model label %d is %q, expected %q\n", m.Index, m.Model, m.Expected)
			}
			return nil
		},
	}
}

func newModelLabelsCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:         "labels",
		Short:       "Print the fixed label order",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			labels := accent.Labels()
			if jsonOutput {
				names := make([]string, len(labels))
				for i, l := range labels {
					names[i] = string(l)
				}
				return writeJSON(cmd, names)
			}
			rows := make([][]string, len(labels))
			for i, l := range labels {
				rows[i] = []string{strconv.Itoa(i), string(l), l.Display()}
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Index", "Label", "Display"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print labels as a JSON array")
	return cmd
}
