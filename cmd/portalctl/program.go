package main

import (
	"extension-portal/internal/proposal"
	"extension-portal/tools"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newProgramCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "program",
		Short: "Work with proposals",
	}
	cmd.AddCommand(newProgramPushCmd(flags))
	cmd.AddCommand(newProgramShowCmd(flags))
	cmd.AddCommand(newSubmitCmd(flags))
	cmd.AddCommand(newTransitionCmd(flags, "decide", "Record a reviewer decision", true))
	cmd.AddCommand(newTransitionCmd(flags, "resubmit", "Resubmit a revised proposal", false))
	cmd.AddCommand(newTransitionCmd(flags, "finalize", "Approve or reject a proposal", true))
	return cmd
}

func newProgramPushCmd(flags *rootFlags) *cobra.Command {
	var submit bool
	cmd := &cobra.Command{
		Use:   "push <file.json>",
		Short: "Create or overwrite a proposal from its JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := proposal.FromPayload(data)
			if err != nil {
				return err
			}
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			if err := a.client.SaveProgram(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved program %d (%d%% complete)\n", p.RecordID, proposal.ScoreProgram(p))
			if !submit {
				return nil
			}
			if err := a.client.SubmitProgram(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&submit, "submit", false, "submit the proposal for review after saving")
	return cmd
}

// newSubmitCmd 按编号提交，或者提交本地保存的申报书树；树里有未保存的行时拒绝
func newSubmitCmd(flags *rootFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit [<proposal>]",
		Short: "Submit a draft for review",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (len(args) == 0) {
				return fmt.Errorf("give either a proposal id or --file")
			}
			var p *proposal.Program
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if p, err = proposal.FromPayload(data); err != nil {
					return err
				}
			}
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			if p != nil {
				if err := a.client.SubmitProgram(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.Status)
				return nil
			}
			id, err := tools.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid proposal id %q", args[0])
			}
			st, err := a.client.Submit(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "local proposal tree (JSON) to submit")
	return cmd
}

func newProgramShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <program>",
		Short: "Show the completion of a proposal tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := tools.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid program id %q", args[0])
			}
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			d, err := a.client.GetProgram(cmd.Context(), id)
			if err != nil {
				return err
			}
			status := d.Program.Status
			if status == "" {
				status = "draft"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n", d.Program.Title, status)
			renderProgress(cmd.OutOrStdout(), proposal.Progress(d.Program))
			return nil
		},
	}
}

func newTransitionCmd(flags *rootFlags, action, short string, withStatus bool) *cobra.Command {
	use := action + " <proposal>"
	if withStatus {
		use += " <status>"
	}
	nargs := 1
	if withStatus {
		nargs = 2
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := tools.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid proposal id %q", args[0])
			}
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()
			var st string
			switch action {
			case "decide":
				st, err = a.client.Decide(ctx, id, args[1])
			case "resubmit":
				st, err = a.client.Resubmit(ctx, id)
			case "finalize":
				st, err = a.client.Finalize(ctx, id, args[1])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func renderProgress(w io.Writer, root *proposal.Node) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Record", "Kind", "Title", "Complete"})
	var walk func(n *proposal.Node, depth int)
	walk = func(n *proposal.Node, depth int) {
		tw.AppendRow(table.Row{n.RecordID, n.Kind, strings.Repeat("  ", depth) + n.Title, fmt.Sprintf("%d%%", n.Score)})
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	tw.Render()
}
