package main

import (
	"extension-portal/internal/global/backend"
	"extension-portal/internal/proposal"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newCoverPageCmd(flags *rootFlags) *cobra.Command {
	var (
		proposalID uint
		body       string
		bodyFile   string
		date       string
	)
	cmd := &cobra.Command{
		Use:   "cover-page",
		Short: "Generate the cover page document of a proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return err
				}
				body = string(data)
			}
			if date == "" {
				date = time.Now().Format(proposal.DateLayout)
			}
			cp, err := a.client.CreateCoverPage(cmd.Context(), backend.CoverPageRequest{
				Proposal:       proposalID,
				CoverPageBody:  body,
				SubmissionDate: date,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cover page %d for proposal %d (%s)\n%s\n",
				cp.ID, cp.ProposalID, cp.SubmissionDate, cp.URL)
			return nil
		},
	}
	cmd.Flags().UintVarP(&proposalID, "proposal", "p", 0, "proposal id (required)")
	cmd.Flags().StringVar(&body, "body", "", "cover page body text")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read cover page body from file")
	cmd.Flags().StringVar(&date, "date", "", "submission date YYYY-MM-DD (default today)")
	cmd.MarkFlagRequired("proposal")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	return cmd
}

func newExportCmd(flags *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download all reviewer assignments as an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			data, err := a.client.ExportAssignments(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "assignments.xlsx", "output file")
	return cmd
}
