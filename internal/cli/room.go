package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/auxroom/auxroom/internal/identity"
	"github.com/auxroom/auxroom/internal/room"
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a listening room",
	Long: `Create a new listening room and become its host. The room id is
printed for sharing; friends join with 'auxroom join <id>'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join a listening room",
	Long: `Join an existing room as a listener. Rejoining a room you hosted
restores your host role.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave the current room",
	RunE:  runLeave,
}

var membersCmd = &cobra.Command{
	Use:     "members",
	Aliases: []string{"who"},
	Short:   "List the room's members",
	RunE:    runMembers,
}

var hostCmd = &cobra.Command{
	Use:   "host <user-id>",
	Short: "Hand the host role to another member",
	Long:  `Transfer the host role. Only the current host can do this.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHostTransfer,
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(leaveCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(hostCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" && isInteractive() {
		var err error
		if name, err = promptInput("Room name", "friday night session"); err != nil {
			return err
		}
	}
	if name == "" {
		name = "listening room"
	}

	self, err := loadSelf()
	if err != nil {
		return err
	}
	st, b, closeFn, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rooms := room.NewService(st, b, cfg.PresenceRefresh(), cfg.PresenceTimeout())
	meta, err := rooms.Create(ctx, name, self.ID, self.Name)
	if err != nil {
		return err
	}
	if err := identity.SaveCurrentRoom(meta.ID); err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"room": meta.ID,
			"name": meta.Name,
			"role": "host",
		})
	}
	fmt.Printf("Created room %q\n", meta.Name)
	fmt.Printf("  id: %s\n", meta.ID)
	fmt.Printf("\nShare it: auxroom join %s\n", meta.ID)
	return nil
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	roomID := ""
	if len(args) > 0 {
		roomID = args[0]
	}
	if roomID == "" {
		if !isInteractive() {
			return fmt.Errorf("room id required")
		}
		var err error
		if roomID, err = promptInput("Room id", "e.g. k7m2xw"); err != nil {
			return err
		}
		if roomID == "" {
			return fmt.Errorf("room id required")
		}
	}

	self, err := loadSelf()
	if err != nil {
		return err
	}
	st, b, closeFn, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rooms := room.NewService(st, b, cfg.PresenceRefresh(), cfg.PresenceTimeout())
	u, err := rooms.Join(ctx, roomID, self.ID, self.Name)
	if err != nil {
		return err
	}
	if err := identity.SaveCurrentRoom(roomID); err != nil {
		return err
	}

	role := "listener"
	if u.IsHost {
		role = "host"
	}
	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"room": roomID,
			"role": role,
		})
	}
	fmt.Printf("Joined %s as %s (%s)\n", roomID, u.Name, role)
	fmt.Println("\nRun 'auxroom ui' for the live view, or 'auxroom status' for a snapshot.")
	return nil
}

func runLeave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.rooms.Leave(ctx, c.roomID, c.self.ID); err != nil {
		return err
	}
	if err := identity.ClearCurrentRoom(); err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "left", "room": c.roomID})
	}
	fmt.Printf("Left %s\n", c.roomID)
	return nil
}

func runMembers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, args)
	if err != nil {
		return err
	}
	defer c.close()

	members, err := c.rooms.Members(ctx, c.roomID)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(members)
	}

	table := NewTable("", "NAME", "ID", "ROLE", "LAST SEEN")
	for _, u := range members {
		role := "listener"
		if u.IsHost {
			role = "host"
		}
		seen := humanize.Time(time.UnixMilli(u.LastActive))
		table.Row(StatusIcon(u.IsActive), u.Name, u.ID, role, seen)
	}
	table.Flush()
	return nil
}

func runHostTransfer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	target := args[0]
	if err := c.rooms.TransferHost(ctx, c.roomID, c.self.ID, target); err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"status": "transferred",
			"host":   target,
		})
	}
	fmt.Printf("Host role transferred to %s\n", target)
	return nil
}
