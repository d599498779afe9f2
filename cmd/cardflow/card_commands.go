package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cardflow/internal/api"
)

func newCardCommand(ctx *commandContext) *cobra.Command {
	cardCmd := &cobra.Command{
		Use:   "card",
		Short: "Card management",
	}
	cardCmd.AddCommand(newCardAddCommand(ctx))
	cardCmd.AddCommand(newCardListCommand(ctx))
	cardCmd.AddCommand(newCardShowCommand(ctx))
	cardCmd.AddCommand(newCardEditCommand(ctx))
	cardCmd.AddCommand(newCardMoveCommand(ctx))
	cardCmd.AddCommand(newCardAuditCommand(ctx))
	return cardCmd
}

func parseCardID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid card id %q", arg)
	}
	return id, nil
}

func newCardAddCommand(ctx *commandContext) *cobra.Command {
	var content string
	var assignee string

	cmd := &cobra.Command{
		Use:   "add <board-id> <title>",
		Short: "Create a card on a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			req := api.CreateCardRequest{Title: args[1], Content: content, Assignee: assignee}
			var card api.Card
			if err := client.post("/api/boards/"+args[0]+"/cards", req, &card); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created card #%d (%s) on stage %s\n", card.SeqNumber, cardRef(card), card.StageID)
			if card.NeedsReview {
				fmt.Fprintln(cmd.OutOrStdout(), "Card was flagged for review: its number came from the fallback allocator")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "Card body text")
	cmd.Flags().StringVar(&assignee, "assignee", "", "User id to assign")
	return cmd
}

func cardRef(card api.Card) string {
	return "id " + strconv.FormatInt(card.ID, 10)
}

func newCardListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <board-id>",
		Short: "List the cards on a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			var resp api.CardListResponse
			if err := client.get("/api/boards/"+args[0]+"/cards", &resp); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			rows := make([][]string, 0, len(resp.Cards))
			for _, card := range resp.Cards {
				lock := ""
				if card.Lock != nil && card.Lock.Locked {
					lock = card.Lock.Holder
				}
				rows = append(rows, []string{
					strconv.FormatInt(card.ID, 10),
					strconv.FormatInt(card.SeqNumber, 10),
					card.Title,
					card.StageID,
					card.Assignee,
					lock,
					yesNo(card.TranslationDone),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "#", "Title", "Stage", "Assignee", "Locked By", "Translated"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newCardShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show one card as JSON",
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
			return writeJSON(cmd, card)
		},
	}
	return cmd
}

func newCardEditCommand(ctx *commandContext) *cobra.Command {
	var title, content, assignee string

	cmd := &cobra.Command{
		Use:   "edit <card-id>",
		Short: "Edit a card's title, content, or assignee",
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

			var req api.UpdateCardRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("content") {
				req.Content = &content
			}
			if cmd.Flags().Changed("assignee") {
				req.Assignee = &assignee
			}
			if req.Title == nil && req.Content == nil && req.Assignee == nil {
				return fmt.Errorf("nothing to change; pass --title, --content, or --assignee")
			}

			var card api.Card
			if err := client.patch(fmt.Sprintf("/api/cards/%d", id), req, &card); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated card %d\n", card.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New body text")
	cmd.Flags().StringVar(&assignee, "assignee", "", "New assignee user id")
	return cmd
}

func newCardMoveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <card-id> <stage>",
		Short: "Move a card to another stage",
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
			if err := client.post(fmt.Sprintf("/api/cards/%d/move", id), api.MoveCardRequest{TargetStage: args[1]}, &card); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Card %d is now on stage %s\n", card.ID, card.StageID)
			return nil
		},
	}
	return cmd
}

func newCardAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit <card-id>",
		Short: "Show a card's stage transition history",
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
			var resp api.AuditListResponse
			if err := client.get(fmt.Sprintf("/api/cards/%d/audit?limit=%d", id, limit), &resp); err != nil {
				return err
			}
			printAuditTable(cmd, resp.Entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	return cmd
}
