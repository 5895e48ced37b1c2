package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"accentid/internal/api"
	"accentid/internal/bootstrap"
	"accentid/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.API.Bind = strings.TrimSpace(bind)
			}
			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg, ctx.httpClient)); len(failed) > 0 {
				for _, r := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "preflight %s: %s\n", r.Name, r.Detail)
				}
				return fmt.Errorf("preflight failed: %d check(s) did not pass", len(failed))
			}

			app, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			srv := api.New(cfg, app.Analyzer, statusReporter(app), app.Logger)
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

			<-cmd.Context().Done()
			app.Logger.Info("accentid shutting down")
			srv.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Address to listen on (overrides api.bind)")
	return cmd
}

func statusReporter(app *bootstrap.App) api.StatusFunc {
	return func(context.Context) api.Status {
		return api.Status{
			Model: api.ModelStatus{
				ID:       app.Hub.ModelID(),
				Revision: app.Hub.Revision(),
				Dir:      app.Hub.Dir(),
			},
			Labels:       api.LabelNames(),
			Dependencies: api.FromDependencies(preflight.CheckSystemDeps(app.Config)),
		}
	}
}
