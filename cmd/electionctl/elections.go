package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

func electionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elections",
		Short: "Manage elections",
	}
	cmd.AddCommand(
		electionsListCommand(a),
		electionsCreateCommand(a),
		electionsStatusCommand(a),
		electionsRegenerateCodeCommand(a),
		electionsDeleteCommand(a),
	)
	return cmd
}

func electionsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every election, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			elections, err := a.svc.Elections.ListElections(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, elections)
		},
	}
}

func electionsCreateCommand(a *app) *cobra.Command {
	var (
		input    ports.CreateElectionInput
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft election",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if duration > 0 {
				start := time.Now().UTC()
				end := start.Add(duration)
				input.StartDate = &start
				input.EndDate = &end
			}
			election, err := a.svc.Elections.CreateElection(cmd.Context(), input)
			if err != nil {
				return err
			}
			return a.print(cmd, election)
		},
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "election title")
	cmd.Flags().StringVar(&input.Description, "description", "", "election description")
	cmd.Flags().IntVar(&input.Round, "round", 1, "round number")
	cmd.Flags().DurationVar(&duration, "duration", 0, "voting window starting now, e.g. 2h")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func electionsStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <election-id> <draft|open|closed>",
		Short: "Set an election's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			election, err := a.svc.Elections.SetElectionStatus(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return a.print(cmd, election)
		},
	}
}

func electionsRegenerateCodeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate-code <election-id>",
		Short: "Issue a new join code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			code, err := a.svc.Elections.RegenerateCode(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]string{"code": code})
		},
	}
}

func electionsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <election-id>",
		Short: "Delete an election with its candidates, voters and votes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			return a.svc.Elections.DeleteElection(cmd.Context(), id)
		},
	}
}
