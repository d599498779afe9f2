package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardflow/internal/api"
)

func newLockCommand(ctx *commandContext) *cobra.Command {
	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Edit lock management",
	}
	lockCmd.AddCommand(newLockAcquireCommand(ctx))
	lockCmd.AddCommand(newLockReleaseCommand(ctx))
	lockCmd.AddCommand(newLockRefreshCommand(ctx))
	lockCmd.AddCommand(newLockStatusCommand(ctx))
	lockCmd.AddCommand(newLockSweepCommand(ctx))
	return lockCmd
}

func newLockSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Clear every expired edit lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			var result api.SweepResult
			if err := client.post("/api/locks/sweep", nil, &result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d expired lock(s)\n", result.Swept)
			return nil
		},
	}
}

func newLockAcquireCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "acquire <card-id>",
		Short: "Claim the edit lock on a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			var lock api.LockStatus
			if err := client.post(fmt.Sprintf("/api/cards/%d/lock", id), nil, &lock); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lock acquired until %s\n", lock.ExpiresAt)
			return nil
		},
	}
}

func newLockReleaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "release <card-id>",
		Short: "Release the edit lock on a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			if err := client.delete(fmt.Sprintf("/api/cards/%d/lock", id)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Lock released")
			return nil
		},
	}
}

func newLockRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <card-id>",
		Short: "Extend a lock the acting user holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			var lock api.LockStatus
			if err := client.post(fmt.Sprintf("/api/cards/%d/lock/refresh", id), nil, &lock); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lock extended until %s\n", lock.ExpiresAt)
			return nil
		},
	}
}

func newLockStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <card-id>",
		Short: "Show the card's lock as seen by the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			var lock api.LockStatus
			if err := client.get(fmt.Sprintf("/api/cards/%d/lock", id), &lock); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !lock.Locked {
				fmt.Fprintln(out, "Card is not locked")
				return nil
			}
			fmt.Fprintf(out, "Card is locked by %s until %s\n", lock.Holder, lock.ExpiresAt)
			return nil
		},
	}
}
