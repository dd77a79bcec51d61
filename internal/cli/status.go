package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the room's playback status",
	Long:  `Shows the current track, position, and membership of the room.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, args)
	if err != nil {
		return err
	}
	defer c.close()

	meta, err := c.store.RoomMeta(ctx, c.roomID)
	if err != nil {
		return err
	}
	track, err := c.store.CurrentTrack(ctx, c.roomID)
	if err != nil {
		return err
	}
	state, err := c.store.PlaybackState(ctx, c.roomID)
	if err != nil {
		return err
	}
	users, err := c.store.Users(ctx, c.roomID)
	if err != nil {
		return err
	}

	active := 0
	hostName := ""
	for _, u := range users {
		if u.IsActive {
			active++
		}
		if u.IsHost {
			hostName = u.Name
		}
	}

	var position float64
	playing := false
	if state != nil {
		position = state.Projected(time.Now())
		playing = state.IsPlaying
	}

	if JSONOutput() {
		out := map[string]interface{}{
			"room":       meta.ID,
			"name":       meta.Name,
			"host":       hostName,
			"members":    active,
			"is_playing": playing,
		}
		if track != nil {
			out["track"] = track
			out["position"] = position
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("[%s] %s\n", meta.ID, meta.Name)
	fmt.Printf("  host: %s · %d listening\n", hostName, active)

	if track == nil {
		fmt.Println("\n  Nothing playing")
		return nil
	}

	playIcon := "▶"
	if !playing {
		playIcon = "⏸"
	}
	fmt.Printf("\n  %s %s\n", playIcon, track.Title)
	if track.Artist != "" {
		fmt.Printf("    %s", track.Artist)
		if track.Album != "" {
			fmt.Printf(" · %s", track.Album)
		}
		fmt.Println()
	}
	fmt.Printf("    %s %s / %s\n",
		FormatProgress(position, track.Duration, 30),
		FormatDuration(position),
		FormatDuration(track.Duration))
	return nil
}
