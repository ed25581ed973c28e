package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halyardlabs/snapview/internal/activity"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Agent   string
	UUID    string
	Target  string
	Frame   string
	Payload string
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <operator>",
		Short: "Append one activity to the log",
		Long: `Append one activity to the log, assigning its ordinal and id.
Resubmitting the same --uuid returns the original activity unchanged.

Example:
  snapview ingest INS --agent cli --uuid $(uuidgen) \
    --frame organizations --target org_1 \
    --payload '{"id":"org_1","fields":{"name":"Acme"}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Agent, "agent", "cli", "agent identity")
	cmd.Flags().StringVar(&opts.UUID, "uuid", "", "client idempotency key (UUID, required)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "record id (required)")
	cmd.Flags().StringVar(&opts.Frame, "frame", "", "frame name (required)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "operator payload as JSON")
	cmd.MarkFlagRequired("uuid")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("frame")

	return cmd
}

func runIngest(cmd *cobra.Command, opts *IngestOptions, operator string) error {
	s, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	in := activity.Input{
		Agent:    opts.Agent,
		UUID:     opts.UUID,
		Operator: activity.Operator(operator),
		Target:   opts.Target,
		Frame:    opts.Frame,
		Payload:  json.RawMessage(opts.Payload),
	}

	act, existing, err := s.Append(cmd.Context(), in)
	if err != nil {
		if activity.IsValidationError(err) {
			out.Error(err.Error(), nil)
			return WrapExitError(ExitFailure, "activity rejected", err)
		}
		return WrapExitError(ExitCommandError, "append activity", err)
	}

	if opts.Format == "json" {
		return out.Success(map[string]any{"activity": act, "duplicate": existing})
	}
	if existing {
		fmt.Fprintf(cmd.OutOrStdout(), "duplicate uuid, original ordinal %d\n", act.Ordinal)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored ordinal %d (id %s)\n", act.Ordinal, act.ID)
	return nil
}
