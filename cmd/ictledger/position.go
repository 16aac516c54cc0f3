package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ict-ledger/interfaces"
)

var closeReason string

var closeCmd = &cobra.Command{
	Use:   "close <position-id> <exit-price>",
	Short: "Close an open position at the given price",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("exit price: %w", err)
		}
		return withApp(cmd, func(a *app) error {
			position, err := a.ledger.Close(cmd.Context(), args[0], price, time.Time{}, interfaces.CloseReason(closeReason))
			if err != nil {
				return err
			}
			return printJSON(position)
		})
	},
}

var positionsStatus string

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List positions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			positions, err := a.ledger.List(cmd.Context(), interfaces.PositionStatus(positionsStatus), "", 50)
			if err != nil {
				return err
			}
			return printJSON(positions)
		})
	},
}

func init() {
	rootCmd.AddCommand(closeCmd, positionsCmd)

	closeCmd.Flags().StringVar(&closeReason, "reason", string(interfaces.CloseManual), "manual, stop or target")
	positionsCmd.Flags().StringVar(&positionsStatus, "status", "", "filter by status (open, closed, stopped_out, target_hit)")
}
