package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/streamchat/history"
	"github.com/tailored-agentic-units/streamchat/observability"
	"github.com/tailored-agentic-units/streamchat/thought"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted conversations, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var historyCmd = &cobra.Command{
	Use:   "history <conversation-id>",
	Short: "Print a persisted conversation",
	Long: `Prints a persisted conversation the way the interactive session shows
it: intermediate reasoning is labelled and merged, tool output is hidden.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a persisted conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func historyClient() (*history.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	obs, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, err
	}
	return history.New(cfg.History, history.WithObserver(obs)), nil
}

func runList(cmd *cobra.Command, args []string) error {
	h, err := historyClient()
	if err != nil {
		return err
	}

	convs, err := h.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(convs) == 0 {
		fmt.Fprintln(out, dimStyle.Render("no conversations"))
		return nil
	}
	for _, conv := range convs {
		fmt.Fprintf(out, "%s  %s  %s\n", conv.ID, titleStyle.Render(conv.Title), dimStyle.Render(conv.CreatedAt))
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, err := historyClient()
	if err != nil {
		return err
	}

	turns, err := h.Fetch(cmd.Context(), args[0])
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("conversation %s does not exist", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, t := range thought.Present(thought.Classify(turns)) {
		fmt.Fprintln(out, formatTurn(t))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	h, err := historyClient()
	if err != nil {
		return err
	}

	if err := h.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
