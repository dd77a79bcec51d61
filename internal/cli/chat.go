package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var reactMessageID string

var sayCmd = &cobra.Command{
	Use:   "say <message>",
	Short: "Send a chat message to the room",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSay,
}

var reactCmd = &cobra.Command{
	Use:   "react <emoji>",
	Short: "Send a reaction to the room",
	Long: `Send a reaction. By default it bumps the room-wide counter shown
next to the player; with --message it attaches to a specific chat message.`,
	Args: cobra.ExactArgs(1),
	RunE: runReact,
}

func init() {
	reactCmd.Flags().StringVarP(&reactMessageID, "message", "m", "", "attach to a chat message id")

	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(reactCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	msg, err := c.chat.Send(ctx, c.roomID, c.self, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	if msg == nil {
		return nil
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(msg)
	}
	fmt.Printf("%s: %s\n", msg.UserName, msg.Body)
	return nil
}

func runReact(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	emoji := args[0]
	if reactMessageID != "" {
		if err := c.chat.ReactToMessage(ctx, c.roomID, c.self, reactMessageID, emoji); err != nil {
			return fmt.Errorf("failed to react: %w", err)
		}
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]string{
				"status":  "reacted",
				"message": reactMessageID,
				"emoji":   emoji,
			})
		}
		fmt.Printf("%s → %s\n", emoji, reactMessageID)
		return nil
	}

	count, err := c.chat.React(ctx, c.roomID, c.self, emoji)
	if err != nil {
		return fmt.Errorf("failed to react: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"emoji": emoji,
			"count": count,
		})
	}
	fmt.Printf("%s ×%d\n", emoji, count)
	return nil
}
