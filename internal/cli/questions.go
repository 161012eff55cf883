package cli

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/trivia-bot/internal/config"
	"github.com/gokatarajesh/trivia-bot/internal/question"
	"github.com/gokatarajesh/trivia-bot/internal/question/external"
)

func newQuestionsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Inspect and fill question banks",
	}
	cmd.AddCommand(newQuestionsImportCmd(e), newQuestionsListCmd(e))
	return cmd
}

func newQuestionsImportCmd(e *env) *cobra.Command {
	var (
		serverID   string
		file       string
		opentdb    bool
		amount     int
		difficulty string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions from a YAML bank or Open Trivia DB",
		Example: `  triviactl questions import --server -1001234567890 --file bank.yaml
  triviactl questions import --server -1001234567890 --opentdb --amount 20 --difficulty easy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == !opentdb {
				return fmt.Errorf("exactly one of --file or --opentdb is required")
			}
			ctx := cmd.Context()
			store, closeStore, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			opts := question.ServiceOptions{}
			if opentdb {
				var (
					otdb config.OpenTDB
					rc   config.Redis
				)
				if err := config.LoadSection(&otdb); err != nil {
					return err
				}
				opts.OpenTDB = external.NewOpenTDBClient(otdb.BaseURL, &http.Client{Timeout: otdb.HTTPTimeout})
				// The session token is shared with the bot when Redis is reachable.
				if err := config.LoadSection(&rc); err == nil {
					client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
					defer client.Close()
					opts.Tokens = question.NewTokenCache(client, 0)
				}
			}
			svc := question.NewService(store, e.logger, opts)

			var res question.ImportResult
			if opentdb {
				res, err = svc.FetchOpenTDB(ctx, serverID, amount, difficulty)
			} else {
				qs, loadErr := question.LoadFile(file)
				if loadErr != nil {
					return loadErr
				}
				res, err = svc.Import(ctx, serverID, qs)
			}
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "imported %d questions, skipped %d\n", res.Added, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverID, "server", "", "chat server id the bank belongs to")
	cmd.Flags().StringVar(&file, "file", "", "YAML question bank")
	cmd.Flags().BoolVar(&opentdb, "opentdb", false, "fetch questions from Open Trivia DB")
	cmd.Flags().IntVar(&amount, "amount", 10, "number of Open Trivia DB questions (1-50)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Open Trivia DB difficulty: easy, medium or hard")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func newQuestionsListCmd(e *env) *cobra.Command {
	var serverID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a server's question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			qs, err := question.NewService(store, e.logger, question.ServiceOptions{}).List(ctx, serverID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "ID\tMODE\tQUESTION\n")
			for _, q := range qs {
				mode := "auto"
				if q.ManualReview() {
					mode = "manual"
				}
				printf(tw, "%s\t%s\t%s\n", q.ID, mode, q.Text)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&serverID, "server", "", "chat server id")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}
