package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ActivitiesOptions holds flags for the activities command.
type ActivitiesOptions struct {
	*RootOptions
	After int64
	Limit int
}

// NewActivitiesCommand creates the activities command.
func NewActivitiesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActivitiesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "List activities with ordinal greater than a cursor",
		Long: `List activities with ordinal strictly greater than --after,
ascending. The printed next cursor continues a paginated walk.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivities(cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "return activities with ordinal > this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "page size")

	return cmd
}

func runActivities(cmd *cobra.Command, opts *ActivitiesOptions) error {
	s, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	acts, next, more, err := s.ReadSince(cmd.Context(), opts.After, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "read activities", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"activities":  acts,
			"next_cursor": next,
			"more":        more,
		})
	}

	for _, act := range acts {
		fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s  %-3s  %s/%s  %s\n",
			act.Ordinal, act.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			act.Operator, act.Frame, act.Target, act.Agent)
	}
	if more {
		fmt.Fprintf(cmd.OutOrStdout(), "more available, continue with --after %d\n", next)
	}
	return nil
}
