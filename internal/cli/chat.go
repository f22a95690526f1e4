package cli

import (
	"bufio"
	"fmt"
	"strings"

	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/serverutils"

	"github.com/spf13/cobra"
)

var (
	askDocument    string
	askMessage     string
	askSession     string
	askSources     bool
	askInteractive bool
)

// askCmd implements 'ask'. With --interactive it keeps reading questions from
// stdin and reuses the session between turns.
var askCmd = pipelineCommand(&cobra.Command{
	Use:   "ask",
	Short: "Ask a question about an ingested document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !askInteractive {
			if askMessage == "" {
				return fmt.Errorf("--message is required unless --interactive is set")
			}
			_, err := ask(cmd, askSession, askMessage)
			return err
		}

		sessionId := askSession
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(cmd.OutOrStdout(), heading("> "))
			if !scanner.Scan() {
				return scanner.Err()
			}
			message := strings.TrimSpace(scanner.Text())
			switch message {
			case "":
				continue
			case "exit", "quit":
				return nil
			}
			id, err := ask(cmd, sessionId, message)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), failure(err.Error()))
				continue
			}
			sessionId = id
		}
	},
})

func ask(cmd *cobra.Command, sessionId, message string) (string, error) {
	req := &dto.AskRequest{
		SessionId:  sessionId,
		DocumentId: askDocument,
		Message:    message,
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return "", err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := container.ChatService.Ask(ctx, req)
	if err != nil {
		return "", err
	}
	printAnswer(cmd.OutOrStdout(), res, askSources)
	return res.SessionId, nil
}

func init() {
	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "document id")
	askCmd.Flags().StringVarP(&askMessage, "message", "m", "", "question to ask")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "continue an existing session")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the retrieved chunks")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "read questions from stdin")
	_ = askCmd.MarkFlagRequired("document")

	rootCmd.AddCommand(askCmd)
}
