package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealbook/internal/auth"
	"github.com/sells-group/dealbook/internal/projection"
)

var (
	projectIDs    []string
	projectRole   string
	projectUser   string
	projectFormat string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Print revenue projections",
}

var projectRequestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Projection rows for booking request ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProjection(cmd, func(ctx context.Context, e *projection.Engine) (any, string) {
			res := e.RequestProjections(ctx, projectIDs)
			return res, res.Error
		})
	},
}

var projectBusinessesCmd = &cobra.Command{
	Use:   "businesses",
	Short: "Projected revenue summaries for business ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProjection(cmd, func(ctx context.Context, e *projection.Engine) (any, string) {
			res := e.BusinessSummaries(ctx, projectIDs)
			return res, res.Error
		})
	},
}

var projectOpportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Projected revenue summaries for opportunity ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProjection(cmd, func(ctx context.Context, e *projection.Engine) (any, string) {
			res := e.OpportunitySummaries(ctx, projectIDs)
			return res, res.Error
		})
	},
}

var projectDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "All in-process and booked projections with totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProjection(cmd, func(ctx context.Context, e *projection.Engine) (any, string) {
			res := e.Dashboard(ctx)
			return res, res.Error
		})
	},
}

// runProjection opens the store, runs fn as the --role/--user identity and
// prints its result. A failed result is printed and returned as an error.
func runProjection(cmd *cobra.Command, fn func(context.Context, *projection.Engine) (any, string)) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return eris.Wrap(err, "init store")
	}
	defer st.Close() //nolint:errcheck

	id := auth.Identity{Role: auth.ParseRole(projectRole), UserID: projectUser}
	engine := projection.NewEngine(st, auth.Static(id), projectionSettings(cfg.Projection))

	res, errMsg := fn(ctx, engine)
	if err := writeOutput(cmd.OutOrStdout(), projectFormat, res); err != nil {
		return err
	}
	if errMsg != "" {
		return eris.Errorf("projection failed: %s", errMsg)
	}
	return nil
}

// writeOutput encodes v as indented JSON or YAML.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unsupported format %q (json or yaml)", format)
	}
}

func init() {
	for _, c := range []*cobra.Command{projectRequestsCmd, projectBusinessesCmd, projectOpportunitiesCmd} {
		c.Flags().StringSliceVar(&projectIDs, "ids", nil, "comma-separated ids (required)")
		_ = c.MarkFlagRequired("ids")
		projectCmd.AddCommand(c)
	}
	projectCmd.AddCommand(projectDashboardCmd)

	projectCmd.PersistentFlags().StringVar(&projectRole, "role", string(auth.RoleAdmin), "caller role (admin or sales)")
	projectCmd.PersistentFlags().StringVar(&projectUser, "user", "cli", "caller user id; scopes sales results")
	projectCmd.PersistentFlags().StringVar(&projectFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(withConfigMode(projectCmd, "project"))
}
