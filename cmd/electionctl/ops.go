package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func resultsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "results <election-id>",
		Short: "Show results, closing the election first if it has expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			results, err := a.svc.Results.GetResults(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd, results)
		},
	}
}

func fraudCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fraud <election-id>",
		Short: "Flag candidates with more votes than real voters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			report, err := a.svc.Fraud.DetectFraud(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd, report)
		},
	}
}

func tickCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tick <election-id>",
		Short: "Close the election if its end date has passed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			result, err := a.svc.Lifecycle.Tick(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]any{
				"election": result.Election,
				"closed":   result.Closed,
				"runoff":   result.Runoff,
			})
		},
	}
}

func sweepCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close every expired open election",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closed, err := a.svc.Sweep.CloseExpiredElections(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]int{"closed": closed})
		},
	}
}
