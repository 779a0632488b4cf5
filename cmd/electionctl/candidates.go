package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func candidatesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Manage candidates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <election-id> <name>",
			Short: "Add a candidate",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return err
				}
				candidate, err := a.svc.Candidates.AddCandidate(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				return a.print(cmd, candidate)
			},
		},
		&cobra.Command{
			Use:   "list <election-id>",
			Short: "List candidates by standing",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return err
				}
				candidates, err := a.svc.Candidates.ListCandidates(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.print(cmd, candidates)
			},
		},
		&cobra.Command{
			Use:   "delete <candidate-id>",
			Short: "Delete a candidate and the votes cast for it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return err
				}
				return a.svc.Candidates.DeleteCandidate(cmd.Context(), id)
			},
		},
	)
	return cmd
}
