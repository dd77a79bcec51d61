package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start or resume playback",
	Long:  `Start or resume playback for the whole room. Host only.`,
	RunE:  runPlay,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Long:  `Pause playback for the whole room. Host only.`,
	RunE:  runPause,
}

var seekCmd = &cobra.Command{
	Use:   "seek <seconds>",
	Short: "Seek within the current track",
	Long: `Seek to a position in the current track, in seconds. Everyone in
the room follows. Host only.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeek,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next queued track",
	Long: `Advance to the next track in the queue. At the end of the queue
nothing changes and the current track keeps playing; the queue never wraps
around. Host only.`,
	RunE: runNext,
}

var prevCmd = &cobra.Command{
	Use:     "prev",
	Aliases: []string{"previous"},
	Short:   "Go back to the previous track",
	RunE:    runPrev,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.sync.Play(ctx); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "playing"})
	} else {
		fmt.Println("▶ Playing")
	}
	return nil
}

func runPause(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.sync.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "paused"})
	} else {
		fmt.Println("⏸ Paused")
	}
	return nil
}

func runSeek(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pos, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid position: %s", args[0])
	}

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.sync.Seek(ctx, pos); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]float64{"position": c.engine.Position()})
	} else {
		fmt.Printf("⏩ Seeked to %s\n", FormatDuration(c.engine.Position()))
	}
	return nil
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	track, err := c.queue.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to skip: %w", err)
	}
	if track == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "end of queue"})
		} else {
			fmt.Println("End of queue")
		}
		return nil
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(track)
	} else {
		fmt.Printf("⏭ %s — %s\n", track.Title, track.Artist)
	}
	return nil
}

func runPrev(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	track, err := c.queue.Previous(ctx)
	if err != nil {
		return fmt.Errorf("failed to go back: %w", err)
	}
	if track == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "start of queue"})
		} else {
			fmt.Println("Already at the start of the queue")
		}
		return nil
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(track)
	} else {
		fmt.Printf("⏮ %s — %s\n", track.Title, track.Artist)
	}
	return nil
}
