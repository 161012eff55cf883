package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/export"
	"github.com/gokatarajesh/trivia-bot/internal/leaderboard"
)

func newLeaderboardCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show or export standings",
	}
	cmd.AddCommand(newLeaderboardShowCmd(e), newLeaderboardExportCmd(e))
	return cmd
}

func newLeaderboardShowCmd(e *env) *cobra.Command {
	var (
		serverID string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a server's standings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			entries, err := leaderboard.NewService(store, nil, e.logger, leaderboard.ServiceOptions{}).Standings(ctx, serverID)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", leaderboard.Render(entries, limit))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverID, "server", "", "chat server id")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 for all)")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func newLeaderboardExportCmd(e *env) *cobra.Command {
	var (
		servers []string
		out     string
	)
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write standings to an XLSX workbook",
		Example: "  triviactl leaderboard export --server -100123 --server -100456 --out standings.xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if len(servers) == 0 {
				active, err := store.ListActive(ctx)
				if err != nil {
					return err
				}
				for _, s := range active {
					servers = append(servers, s.ServerID)
				}
			}
			if len(servers) == 0 {
				return fmt.Errorf("no active contests; pass --server")
			}

			boards := make(map[string][]contest.LeaderboardEntry, len(servers))
			for _, id := range servers {
				entries, err := store.ListLeaderboard(ctx, id)
				if err != nil {
					return fmt.Errorf("load standings for %s: %w", id, err)
				}
				boards[id] = entries
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteXLSX(f, boards); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "wrote %d server(s) to %s\n", len(boards), out)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&servers, "server", nil, "server id to export (repeatable, defaults to all active contests)")
	cmd.Flags().StringVar(&out, "out", "standings.xlsx", "output file")
	return cmd
}
