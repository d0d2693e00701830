// portalctl 管理员命令行：登录、评审人分配、封面生成和账号维护
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version 构建时通过 ldflags 注入
var Version = "dev"

type rootFlags struct {
	configPath  string
	baseURL     string
	sessionPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Extension proposal portal admin CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config file")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "backend base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.sessionPath, "session", "", "session file path (overrides config)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd(flags))
	cmd.AddCommand(newLogoutCmd(flags))
	cmd.AddCommand(newWhoamiCmd(flags))
	cmd.AddCommand(newReviewersCmd(flags))
	cmd.AddCommand(newAssignmentsCmd(flags))
	cmd.AddCommand(newAssignCmd(flags))
	cmd.AddCommand(newUnassignCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newProgramCmd(flags))
	cmd.AddCommand(newCoverPageCmd(flags))
	cmd.AddCommand(newAccountCmd(flags))
	cmd.AddCommand(newExportCmd(flags))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portalctl %s\n", Version)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
