package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/music-assist/backend/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a question, or start an interactive session",
	Long: `Asks a single question when a message is given, or starts an
interactive chat session otherwise. Type "exit" or "quit" to leave
the session. Follow-up questions share the conversation context.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := initServices(ctx); err != nil {
		return err
	}
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	if len(args) > 0 {
		return ask(ctx, cmd, args[0], "")
	}

	return chatLoop(ctx, cmd)
}

// chatLoop runs the interactive session, carrying the conversation ID
// across questions so follow-ups resolve against prior turns.
func chatLoop(ctx context.Context, cmd *cobra.Command) error {
	cmd.Println("music-assist interactive chat. Type \"exit\" to leave.")
	cmd.Println()

	conversationID := ""
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		message := strings.TrimSpace(scanner.Text())
		switch message {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := answerService.Answer(ctx, message, conversationID)
		if err != nil {
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}
		conversationID = answer.ConversationID

		cmd.Println()
		cmd.Println(answer.Text)
		printSources(cmd, answer)
		cmd.Println()
	}
}

// ask answers a single question and exits.
func ask(ctx context.Context, cmd *cobra.Command, message, conversationID string) error {
	answer, err := answerService.Answer(ctx, message, conversationID)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	cmd.Println(answer.Text)
	printSources(cmd, answer)
	return nil
}

func printSources(cmd *cobra.Command, answer *domain.Answer) {
	if len(answer.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range answer.Sources {
		cmd.Printf("  [%d] %s (%s)\n", i+1, src.Title, src.URL)
	}
}
