package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auxroom/auxroom/internal/core"
)

var (
	addTitle    string
	addArtist   string
	addAlbum    string
	addDuration float64
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the room's queue",
	RunE:  runQueueList,
}

var addCmd = &cobra.Command{
	Use:   "add <source-url>",
	Short: "Add a track to the queue",
	Long: `Add a track to the shared queue. Anyone in the room can add; the
same source may be added more than once. When the host adds the first
track to an idle room it starts playing immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueueAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <track-id>",
	Short: "Remove a track from the queue",
	Long:  `Remove a queue entry by its id (see 'auxroom queue'). Host only.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRemove,
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "track title")
	addCmd.Flags().StringVar(&addArtist, "artist", "", "track artist")
	addCmd.Flags().StringVar(&addAlbum, "album", "", "track album")
	addCmd.Flags().Float64Var(&addDuration, "duration", 0, "track duration in seconds")

	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, args)
	if err != nil {
		return err
	}
	defer c.close()

	tracks, err := c.queue.Tracks(ctx)
	if err != nil {
		return err
	}
	current, err := c.store.CurrentTrack(ctx, c.roomID)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(tracks)
	}

	if len(tracks) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	table := NewTable("", "#", "TITLE", "ARTIST", "LENGTH", "ID")
	for i, t := range tracks {
		marker := " "
		if current != nil && t.ID == current.ID {
			marker = "▶"
		}
		table.Row(marker,
			fmt.Sprintf("%d", i+1),
			TruncateString(t.Title, 40),
			TruncateString(t.Artist, 30),
			FormatDuration(t.Duration),
			t.ID)
	}
	table.Flush()
	return nil
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	sourceURL := args[0]
	title := addTitle
	if title == "" {
		title = sourceURL
	}
	track, err := c.queue.Add(ctx, core.Track{
		Title:      title,
		Artist:     addArtist,
		Album:      addAlbum,
		SourceURL:  sourceURL,
		Duration:   addDuration,
		Provenance: core.DetectProvenance(sourceURL),
	})
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(track)
	}
	fmt.Printf("Added %q (%s)\n", track.Title, track.ID)
	return nil
}

func runQueueRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := openControl(ctx, nil)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.queue.Remove(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "removed", "track": args[0]})
	} else {
		fmt.Printf("Removed %s\n", args[0])
	}
	return nil
}
