package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/museumrag/internal/domain"
	"github.com/kailas-cloud/museumrag/internal/prompt"
	museumrag "github.com/kailas-cloud/museumrag/pkg/sdk"
)

var (
	askK         int
	askServer    string
	askToken     string
	askNoContext bool
)

func init() {
	askCmd.Flags().IntVarP(&askK, "top-k", "k", 0, "number of retrieved chunks (0 = configured default)")
	askCmd.Flags().StringVar(&askServer, "server", "", "ask a running server instead of the local pipeline")
	askCmd.Flags().StringVar(&askToken, "token", "", "bearer token for --server")
	askCmd.Flags().BoolVar(&askNoContext, "no-context", false, "print only the answer")
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question",
	Long: `Answer one question and print the retrieved context.

Examples:
  # Run the pipeline in-process
  museumrag ask "Where is the Dalí Museum located?"

  # Ask a running server
  museumrag ask --server http://localhost:8501 -k 5 "When is the museum open?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if askServer != "" {
		return askRemote(cmd, question)
	}

	a, _, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if a.credErr != nil {
		return a.credErr
	}

	if a.cfg.EphemeralIndex() {
		if _, err := a.population().Populate(cmd.Context(), a.docs); err != nil {
			return err
		}
	}

	svc := a.rag()
	k := askK
	if k == 0 {
		k = svc.DefaultK()
	}
	ans, err := svc.Answer(cmd.Context(), question, k)
	if err != nil {
		return err
	}
	printAnswer(cmd.OutOrStdout(), ans.Text, ans.Chunks)
	return nil
}

func askRemote(cmd *cobra.Command, question string) error {
	client, err := museumrag.New(askServer, museumrag.WithAPIKey(askToken))
	if err != nil {
		return err
	}
	ans, err := client.Ask(cmd.Context(), question, askK)
	if err != nil {
		return err
	}
	chunks := make([]domain.RetrievedChunk, len(ans.Chunks))
	for i, c := range ans.Chunks {
		chunks[i] = domain.RetrievedChunk{ID: c.ID, Title: c.Title, Section: c.Section, Text: c.Text, Score: c.Score}
	}
	printAnswer(cmd.OutOrStdout(), ans.Answer, chunks)
	return nil
}

func printAnswer(w io.Writer, answer string, chunks []domain.RetrievedChunk) {
	fmt.Fprintln(w, answer)
	if askNoContext || len(chunks) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Retrieved context:")
	for _, c := range chunks {
		fmt.Fprintf(w, "\n%s (score %.3f)\n%s\n", prompt.Header(c.Title, c.Section), c.Score, c.Text)
	}
}
