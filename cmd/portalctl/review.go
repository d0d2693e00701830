package main

import (
	"errors"
	"extension-portal/internal/review"
	"extension-portal/tools"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newReviewersCmd(flags *rootFlags) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "reviewers",
		Short: "List reviewers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			list, err := a.client.ListReviewers(cmd.Context())
			if err != nil {
				return err
			}
			renderReviewers(cmd.OutOrStdout(), review.Search(list, search))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by reviewer name")
	return cmd
}

func newAssignmentsCmd(flags *rootFlags) *cobra.Command {
	var proposalID uint
	cmd := &cobra.Command{
		Use:   "assignments",
		Short: "Show reviewer assignments of a proposal, or of all proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			view, err := a.coordinator().Refresh(cmd.Context(), proposalID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if proposalID != 0 {
				fmt.Fprintf(out, "Proposal %d: %s\n", proposalID, view.Status)
			}
			renderAssignments(out, view)
			return nil
		},
	}
	cmd.Flags().UintVarP(&proposalID, "proposal", "p", 0, "proposal id (0 = all proposals)")
	return cmd
}

func newAssignCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <proposal> <reviewer>...",
		Short: "Assign reviewers to a proposal, skipping those already assigned",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			proposalID, err := tools.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid proposal id %q", args[0])
			}
			reviewerIDs, err := parseIDs(args[1:])
			if err != nil {
				return err
			}

			coord := a.coordinator()
			res, err := coord.Assign(cmd.Context(), proposalID, reviewerIDs)
			out := cmd.OutOrStdout()
			if res != nil {
				fmt.Fprintf(out, "created: %v\nskipped: %v\n", res.Created, res.Skipped)
				if len(res.Failed) > 0 {
					fmt.Fprintf(out, "failed:  %v\n", res.Failed)
				}
			}
			var pf *review.PartialFailure
			if errors.As(err, &pf) {
				for _, id := range pf.Failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "  reviewer %d: %v\n", id, pf.Causes[id])
				}
			}
			if err != nil {
				return err
			}
			if st, ok := coord.Status(proposalID); ok {
				fmt.Fprintf(out, "status:  %s\n", st)
			}
			return nil
		},
	}
}

func newUnassignCmd(flags *rootFlags) *cobra.Command {
	var proposalID uint
	cmd := &cobra.Command{
		Use:   "unassign <assignment>...",
		Short: "Remove reviewer assignments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			coord := a.coordinator()
			if _, err := coord.Refresh(cmd.Context(), proposalID); err != nil {
				return err
			}
			for _, id := range ids {
				if err := coord.Unassign(cmd.Context(), id); err != nil {
					return fmt.Errorf("unassign %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed assignment %d\n", id)
			}
			return nil
		},
	}
	cmd.Flags().UintVarP(&proposalID, "proposal", "p", 0, "proposal the assignments belong to (0 = look up across all)")
	return cmd
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <proposal>",
		Short: "Show the review status of a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := tools.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid proposal id %q", args[0])
			}
			st, err := a.client.ProposalStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func renderReviewers(w io.Writer, list []review.Reviewer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Email", "Department"})
	for _, r := range list {
		email := ""
		if r.Profile != nil {
			email = r.Profile.Email
		}
		tw.AppendRow(table.Row{r.ID, r.DisplayName(), email, r.Department()})
	}
	tw.Render()
}

func renderAssignments(w io.Writer, view *review.View) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Assignment", "Proposal", "Reviewer", "Name", "Department", "Assigned At"})
	for _, as := range view.Assignments {
		r := review.Reviewer{ID: as.ReviewerID, Profile: as.Profile}
		tw.AppendRow(table.Row{as.ID, as.ProposalID, as.ReviewerID, r.DisplayName(), r.Department(), as.AssignedAt.Local().Format(time.DateTime)})
	}
	tw.Render()
}
