package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
)

var correlationIDCmd = &cobra.Command{
	Use:   "correlation-id",
	Short: "Print a fresh correlation ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), correlation.New())
		return err
	},
}

func init() {
	rootCmd.AddCommand(correlationIDCmd)
}
