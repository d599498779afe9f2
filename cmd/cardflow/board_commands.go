package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cardflow/internal/api"
)

func newBoardCommand(ctx *commandContext) *cobra.Command {
	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Board management",
	}
	boardCmd.AddCommand(newBoardCreateCommand(ctx))
	boardCmd.AddCommand(newBoardListCommand(ctx))
	boardCmd.AddCommand(newBoardShowCommand(ctx))
	boardCmd.AddCommand(newBoardShareCommand(ctx))
	boardCmd.AddCommand(newBoardCountsCommand(ctx))
	boardCmd.AddCommand(newBoardAuditCommand(ctx))
	return boardCmd
}

func newBoardCreateCommand(ctx *commandContext) *cobra.Command {
	var stages []string
	var sourceLang, targetLang, hopLang string
	var providers []string
	var share []string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}

			req := api.CreateBoardRequest{
				Title:      args[0],
				SharedWith: share,
				Translation: api.TranslationConfig{
					SourceLang:      sourceLang,
					TargetLang:      targetLang,
					IntermediateHop: hopLang != "",
					HopLang:         hopLang,
					Providers:       providers,
				},
			}
			for _, spec := range stages {
				req.Stages = append(req.Stages, parseStageSpec(spec))
			}

			var board api.Board
			if err := client.post("/api/boards", req, &board); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created board %s (%s)\n", board.Title, board.PublicID)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&stages, "stage", []string{"todo:To Do", "doing:In Progress", "done:Done"}, "Stage as id:title[:wip], repeatable")
	cmd.Flags().StringVar(&sourceLang, "from", "", "Source language tag")
	cmd.Flags().StringVar(&targetLang, "to", "", "Target language tag")
	cmd.Flags().StringVar(&hopLang, "via", "", "Intermediate hop language tag")
	cmd.Flags().StringSliceVar(&providers, "provider", nil, "Translation provider, repeatable")
	cmd.Flags().StringSliceVar(&share, "share", nil, "User id to share with, repeatable")
	return cmd
}

// parseStageSpec splits "id:title[:wip]" into a stage definition. A bare id
// doubles as the title.
func parseStageSpec(spec string) api.Stage {
	parts := strings.SplitN(spec, ":", 3)
	stage := api.Stage{ID: strings.TrimSpace(parts[0])}
	stage.Title = stage.ID
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		stage.Title = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		if wip, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil {
			stage.WIPLimit = wip
		}
	}
	return stage
}

func newBoardListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards visible to the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			var resp api.BoardListResponse
			if err := client.get("/api/boards", &resp); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			rows := make([][]string, 0, len(resp.Boards))
			for _, board := range resp.Boards {
				stageIDs := make([]string, 0, len(board.Stages))
				for _, stage := range board.Stages {
					stageIDs = append(stageIDs, stage.ID)
				}
				rows = append(rows, []string{
					board.PublicID,
					board.Title,
					strings.Join(stageIDs, " > "),
					translationSummary(board.Translation),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Stages", "Translation"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func translationSummary(cfg api.TranslationConfig) string {
	if cfg.SourceLang == "" || cfg.TargetLang == "" {
		return "-"
	}
	if cfg.IntermediateHop && cfg.HopLang != "" {
		return fmt.Sprintf("%s > %s > %s", cfg.SourceLang, cfg.HopLang, cfg.TargetLang)
	}
	return fmt.Sprintf("%s > %s", cfg.SourceLang, cfg.TargetLang)
}

func newBoardShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <board-id>",
		Short: "Show one board as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			var board api.Board
			if err := client.get("/api/boards/"+args[0], &board); err != nil {
				return err
			}
			return writeJSON(cmd, board)
		},
	}
	return cmd
}

func newBoardShareCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <board-id> <user-id>",
		Short: "Share a board with another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			var board api.Board
			if err := client.post("/api/boards/"+args[0]+"/share", api.ShareRequest{UserID: args[1]}, &board); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Board %s shared with %s\n", board.PublicID, args[1])
			return nil
		},
	}
	return cmd
}

func newBoardCountsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counts <board-id>",
		Short: "Show per-stage card counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			var board api.Board
			if err := client.get("/api/boards/"+args[0], &board); err != nil {
				return err
			}
			var resp api.StageCountsResponse
			if err := client.get("/api/boards/"+args[0]+"/counts", &resp); err != nil {
				return err
			}

			rows := make([][]string, 0, len(board.Stages))
			for _, stage := range board.Stages {
				wip := "-"
				if stage.WIPLimit > 0 {
					wip = strconv.Itoa(stage.WIPLimit)
				}
				rows = append(rows, []string{
					stage.ID,
					stage.Title,
					strconv.Itoa(resp.Counts[stage.ID]),
					wip,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Stage", "Title", "Cards", "WIP Limit"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	return cmd
}

func newBoardAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit <board-id>",
		Short: "Show recent stage transitions on a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(true)
			if err != nil {
				return err
			}
			var resp api.AuditListResponse
			path := fmt.Sprintf("/api/boards/%s/audit?limit=%d", args[0], limit)
			if err := client.get(path, &resp); err != nil {
				return err
			}
			printAuditTable(cmd, resp.Entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	return cmd
}

func printAuditTable(cmd *cobra.Command, entries []api.AuditEntry) {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(entry.CardID, 10),
			entry.Action,
			entry.FromStage,
			entry.ToStage,
			entry.UserID,
			entry.CreatedAt,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Card", "Action", "From", "To", "User", "At"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
