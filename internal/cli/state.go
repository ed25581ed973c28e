package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/halyardlabs/snapview/internal/state"
)

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the current merged state",
		Long: `Print the current state: the latest snapshot merged with the
activity tail. Falls back to full-history replay if no snapshot exists.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd, rootOpts)
		},
	}
	return cmd
}

func runState(cmd *cobra.Command, opts *RootOptions) error {
	s, _, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := state.New(s).CurrentState(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "current state", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "last activity ordinal: %d\n", snap.LastActivityOrdinal)
	frames := make([]string, 0, len(snap.Data))
	for name := range snap.Data {
		frames = append(frames, name)
	}
	sort.Strings(frames)
	for _, name := range frames {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d records)\n", name, len(snap.Data[name]))
		for _, rec := range snap.Data[name] {
			fields, _ := json.Marshal(rec.Fields)
			fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", rec.ID, fields)
		}
	}
	return nil
}
