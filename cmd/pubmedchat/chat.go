package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pubmed-chat/internal/render"
	"pubmed-chat/internal/usecase"
)

const chatPrompt = "> "

var errHistoryNeedsPersist = errors.New("history reads a stored transcript: pass --persist and set STATE_TABLE")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session; each line is one question",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService(cmd)
		if err != nil {
			return err
		}
		conv, _ := cmd.Flags().GetString("conversation")
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), svc, conv)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <conversation-id>",
	Short: "Print the stored transcript of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if persist, _ := cmd.Flags().GetBool("persist"); !persist {
			return errHistoryNeedsPersist
		}
		svc, err := buildService(cmd)
		if err != nil {
			return err
		}
		return runHistory(cmd.Context(), cmd.OutOrStdout(), svc, args[0])
	},
}

func init() {
	chatCmd.Flags().String("conversation", "", "conversation id to continue (default: new conversation)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
}

// runChat reads one question per line until EOF or "exit". Input errors are
// reported and the session continues; other errors end it.
func runChat(ctx context.Context, r io.Reader, w io.Writer, svc asker, conversationID string) error {
	scanner := bufio.NewScanner(r)
	fmt.Fprint(w, chatPrompt)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			fmt.Fprint(w, chatPrompt)
			continue
		case "exit", "quit":
			return nil
		}

		out, err := svc.Ask(ctx, usecase.AskInput{Question: line, ConversationID: conversationID})
		if err != nil {
			if !isInputError(err) {
				return describe(err)
			}
			fmt.Fprintln(w, describe(err))
			fmt.Fprint(w, chatPrompt)
			continue
		}
		conversationID = out.ConversationID
		if err := render.Blocks(w, out.Blocks); err != nil {
			return err
		}
		fmt.Fprint(w, chatPrompt)
	}
	return scanner.Err()
}

func runHistory(ctx context.Context, w io.Writer, svc asker, conversationID string) error {
	turns, err := svc.History(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}
	if len(turns) == 0 {
		return fmt.Errorf("conversation %q not found", conversationID)
	}
	for _, t := range turns {
		if err := render.Turn(w, t); err != nil {
			return err
		}
	}
	return nil
}
