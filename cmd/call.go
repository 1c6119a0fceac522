package main

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/funnel"
)

var (
	callPayload       string
	callCorrelationID string
)

var callCmd = &cobra.Command{
	Use:   "call <operation>",
	Short: "Run one funnel operation and print the JSON result",
	Long: "Runs a funnel operation against the configured integration API, falling back to local content on failure.\n" +
		"Operations: " + strings.Join(funnel.Operations, ", "),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("call"); err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initFunnel(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			env.Close(sctx)
		}()

		return runCall(ctx, env.Service, args[0], callPayload, callCorrelationID, cmd.OutOrStdout())
	},
}

// runCall invokes op with payload and writes the indented result to out.
func runCall(ctx context.Context, svc *funnel.Service, op, payload, corrID string, out io.Writer) error {
	if !slices.Contains(funnel.Operations, op) {
		return eris.Errorf("unknown operation %q (want one of %s)", op, strings.Join(funnel.Operations, ", "))
	}
	if corrID != "" {
		ctx = correlation.NewContext(ctx, corrID)
	}

	res, err := svc.Invoke(ctx, op, []byte(payload))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return eris.Wrap(err, "encode result")
	}
	return nil
}

func init() {
	callCmd.Flags().StringVar(&callPayload, "payload", "", "JSON request body (default: empty request)")
	callCmd.Flags().StringVar(&callCorrelationID, "correlation-id", "", "correlation ID to send (default: freshly generated)")
	rootCmd.AddCommand(callCmd)
}
