package main

import (
	"github.com/spf13/cobra"

	"ict-ledger/interfaces"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the current account state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			snap, err := a.accounts.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(snap)
		})
	},
}

var resetDayCmd = &cobra.Command{
	Use:   "reset-day",
	Short: "Apply the daily reset if the trading day has rolled over",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			snap, reset, err := a.accounts.ResetDaily(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"reset": reset, "account": snap})
		})
	},
}

var (
	haltReason string
	haltScope  string
)

var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Halt new entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			snap, err := a.accounts.Halt(cmd.Context(), haltReason, interfaces.HaltScope(haltScope))
			if err != nil {
				return err
			}
			return printJSON(snap)
		})
	},
}

var enableReason string

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Lift any halt and allow trading again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			snap, err := a.accounts.Enable(cmd.Context(), enableReason)
			if err != nil {
				return err
			}
			return printJSON(snap)
		})
	},
}

func init() {
	rootCmd.AddCommand(accountCmd, resetDayCmd, haltCmd, enableCmd)

	haltCmd.Flags().StringVar(&haltReason, "reason", "", "why trading is halted")
	haltCmd.Flags().StringVar(&haltScope, "scope", string(interfaces.HaltHard), "daily (lifted by the next reset) or hard")
	_ = haltCmd.MarkFlagRequired("reason")

	enableCmd.Flags().StringVar(&enableReason, "reason", "manual enable", "why trading is re-enabled")
}
