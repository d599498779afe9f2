package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var apiFlag string
	var configFlag string
	var userFlag string
	var tokenFlag string

	ctx := newCommandContext(&apiFlag, &configFlag, &userFlag, &tokenFlag)

	rootCmd := &cobra.Command{
		Use:           "cardflow",
		Short:         "Cardflow board CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Base URL of the cardflow daemon API")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Acting user id")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "API bearer token")

	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newUserCommand(ctx))
	rootCmd.AddCommand(newBoardCommand(ctx))
	rootCmd.AddCommand(newCardCommand(ctx))
	rootCmd.AddCommand(newLockCommand(ctx))
	rootCmd.AddCommand(newTranslateCommand(ctx))

	return rootCmd
}
