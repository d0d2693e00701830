package main

import (
	"extension-portal/internal/global/backend"
	"extension-portal/internal/global/jwt"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAccountCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newAccountCreateCmd(flags))
	cmd.AddCommand(newAccountDeleteCmd(flags))
	return cmd
}

var roleNames = map[string]int{
	"implementor": jwt.RoleImplementor,
	"reviewer":    jwt.RoleReviewer,
	"admin":       jwt.RoleAdmin,
}

func newAccountCreateCmd(flags *rootFlags) *cobra.Command {
	var (
		in   backend.AccountRequest
		role string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			roleID, ok := roleNames[role]
			if !ok {
				return fmt.Errorf("unknown role %q (implementor, reviewer, admin)", role)
			}
			in.RoleID = roleID
			if in.Password == "" {
				in.Password = os.Getenv("PORTAL_NEW_PASSWORD")
			}
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			acc, err := a.client.CreateAccount(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created account %d (%s, role %d)\n", acc.ID, acc.Username, acc.RoleID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "username (required)")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "initial password (or PORTAL_NEW_PASSWORD)")
	cmd.Flags().StringVar(&role, "role", "implementor", "implementor, reviewer or admin")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Department, "department", "", "department")
	cmd.MarkFlagRequired("username")
	return cmd
}

func newAccountDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account>...",
		Short: "Delete accounts; their sessions stop working immediately",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
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
			for _, id := range ids {
				if err := a.client.DeleteAccount(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete account %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted account %d\n", id)
			}
			return nil
		},
	}
}
