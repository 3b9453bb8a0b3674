package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pubmed-chat/internal/render"
	"pubmed-chat/internal/usecase"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the result blocks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService(cmd)
		if err != nil {
			return err
		}
		conv, _ := cmd.Flags().GetString("conversation")
		asJSON, _ := cmd.Flags().GetBool("json")
		return runAsk(cmd.Context(), cmd.OutOrStdout(), svc, strings.Join(args, " "), conv, asJSON)
	},
}

func init() {
	askCmd.Flags().String("conversation", "", "conversation id to append to (default: new conversation)")
	askCmd.Flags().Bool("json", false, "print the result blocks as JSON")

	rootCmd.AddCommand(askCmd)
}

type askResult struct {
	ConversationID string `json:"conversationId"`
	Blocks         any    `json:"blocks"`
	Failure        string `json:"failure,omitempty"`
}

func runAsk(ctx context.Context, w io.Writer, svc asker, question, conversationID string, asJSON bool) error {
	out, err := svc.Ask(ctx, usecase.AskInput{Question: question, ConversationID: conversationID})
	if err != nil {
		return describe(err)
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(askResult{ConversationID: out.ConversationID, Blocks: out.Blocks, Failure: string(out.Failure)})
	}
	return render.Blocks(w, out.Blocks)
}

func isInputError(err error) bool {
	var ue *usecase.Error
	return errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput
}

// describe turns input errors into a message fit for the terminal.
func describe(err error) error {
	var ue *usecase.Error
	if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
		switch ue.Reason {
		case "empty_question":
			return errors.New("質問を入力してください。")
		case "question_too_long":
			return errors.New("質問が長すぎます。")
		}
	}
	return fmt.Errorf("ask failed: %w", err)
}
