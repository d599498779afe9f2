package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardflow/internal/api"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	translateCmd := &cobra.Command{
		Use:   "translate",
		Short: "Translation pipeline operations",
	}
	translateCmd.AddCommand(newTranslateRunCommand(ctx))
	translateCmd.AddCommand(newTranslateManualCommand(ctx))
	translateCmd.AddCommand(newTranslateApproveCommand(ctx))
	translateCmd.AddCommand(newTranslateShowCommand(ctx))
	return translateCmd
}

func newTranslateRunCommand(ctx *commandContext) *cobra.Command {
	var step int
	var provider string

	cmd := &cobra.Command{
		Use:   "run <card-id>",
		Short: "Run one translation step through a provider",
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
			var card api.Card
			req := api.ExecuteStepRequest{Step: step, Provider: provider}
			if err := client.post(fmt.Sprintf("/api/cards/%d/translate/execute", id), req, &card); err != nil {
				return err
			}
			printSteps(cmd, card)
			return nil
		},
	}

	cmd.Flags().IntVar(&step, "step", 0, "Step index to run")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider to run the step with")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newTranslateManualCommand(ctx *commandContext) *cobra.Command {
	var step int

	cmd := &cobra.Command{
		Use:   "manual <card-id> <text>",
		Short: "Record a hand-entered translation for a step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			var card api.Card
			req := api.ManualStepRequest{Step: step, Text: args[1]}
			if err := client.post(fmt.Sprintf("/api/cards/%d/translate/manual", id), req, &card); err != nil {
				return err
			}
			printSteps(cmd, card)
			return nil
		},
	}

	cmd.Flags().IntVar(&step, "step", 0, "Step index to set")
	return cmd
}

func newTranslateApproveCommand(ctx *commandContext) *cobra.Command {
	var step int

	cmd := &cobra.Command{
		Use:   "approve <card-id>",
		Short: "Approve a completed translation step",
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
			var card api.Card
			req := api.ApproveStepRequest{Step: step}
			if err := client.post(fmt.Sprintf("/api/cards/%d/translate/approve", id), req, &card); err != nil {
				return err
			}
			printSteps(cmd, card)
			return nil
		},
	}

	cmd.Flags().IntVar(&step, "step", 0, "Step index to approve")
	return cmd
}

func newTranslateShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show a card's translation plan",
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
			var card api.Card
			if err := client.get(fmt.Sprintf("/api/cards/%d", id), &card); err != nil {
				return err
			}
			printSteps(cmd, card)
			return nil
		},
	}
}

func printSteps(cmd *cobra.Command, card api.Card) {
	out := cmd.OutOrStdout()
	if len(card.Steps) == 0 {
		fmt.Fprintln(out, "Card has no translation plan")
		return
	}

	rows := make([][]string, 0, len(card.Steps))
	for i, step := range card.Steps {
		result := step.TranslatedText
		if step.ErrorMessage != "" {
			result = "error: " + step.ErrorMessage
		}
		manual := ""
		if step.ManuallyEdited {
			manual = "manual"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			step.FromLang + " > " + step.ToLang,
			step.Status,
			step.Provider,
			manual,
			result,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Step", "Languages", "Status", "Provider", "", "Result"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	if card.TranslationDone {
		fmt.Fprintf(out, "Translation complete: %q\n", card.CurrentTranslation)
	}
}
