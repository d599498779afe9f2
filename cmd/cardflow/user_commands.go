package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardflow/internal/api"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}
	userCmd.AddCommand(newUserAddCommand(ctx))
	return userCmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var role string
	var name string

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(false)
			if err != nil {
				return err
			}
			if name == "" {
				name = args[0]
			}
			var user api.User
			req := api.CreateUserRequest{ID: args[0], Name: name, Role: role}
			if err := client.post("/api/users", req, &user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.ID, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "editor", "Role: admin, editor, or viewer")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the id)")
	return cmd
}
