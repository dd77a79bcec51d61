package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/auxroom/auxroom/internal/chat"
	"github.com/auxroom/auxroom/internal/feed"
)

var (
	listenNoEmoji   bool
	listenTimestamp bool
	listenFormat    string
	listenHistory   int
)

var listenCmd = &cobra.Command{
	Use:   "listen [room-id]",
	Short: "Follow room activity in real-time",
	Long: `Watch the room and print activity as it happens.

Events tracked:
  - Track changes (new song started)
  - Track completions (song finished)
  - Track skips (song skipped before completion)
  - Pause/Resume and seeks
  - Members joining and leaving
  - Chat messages and reactions
  - Host transfers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&listenNoEmoji, "no-emoji", false, "disable emoji output")
	listenCmd.Flags().BoolVarP(&listenTimestamp, "timestamp", "t", false, "show timestamps")
	listenCmd.Flags().StringVarP(&listenFormat, "format", "f", "", "custom format template")
	listenCmd.Flags().IntVar(&listenHistory, "history", 5, "chat messages to replay on startup")

	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, err := openControl(ctx, args)
	if err != nil {
		return err
	}
	defer c.close()

	formatter := feed.NewFormatter(
		feed.WithEmoji(!listenNoEmoji),
		feed.WithTimestamp(listenTimestamp),
		feed.WithTemplate(listenFormat),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	showRecentChat(ctx, c, formatter)

	observer := feed.NewObserver()

	stopWatch, err := c.store.Watch(ctx, c.roomID, observer.ObserveSnapshot)
	if err != nil {
		return fmt.Errorf("failed to watch room: %w", err)
	}
	defer stopWatch()

	events, unsubscribe, err := c.bus.Subscribe(ctx, c.roomID)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer unsubscribe()

	// Seed the diff with the room's current state so the first line shows
	// what is playing right now.
	if track, err := c.store.CurrentTrack(ctx, c.roomID); err == nil && track != nil {
		if state, err := c.store.PlaybackState(ctx, c.roomID); err == nil && state != nil {
			fmt.Println(formatter.Format(feed.Event{
				Type:      feed.EventTrackChange,
				Timestamp: time.Now(),
				Track:     track,
				Current:   state,
			}))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if evt.UserID == c.self.ID {
				continue
			}
			observer.ObserveBus(evt)

		case e := <-observer.Events():
			fmt.Println(formatter.Format(e))
		}
	}
}

// showRecentChat replays the last few chat messages so a late joiner has
// some context.
func showRecentChat(ctx context.Context, c *control, formatter *feed.Formatter) {
	if listenHistory <= 0 {
		return
	}
	limit := listenHistory
	if limit > chat.HistoryLimit {
		limit = chat.HistoryLimit
	}
	messages, err := c.chat.History(ctx, c.roomID, limit)
	if err != nil {
		return
	}
	for _, msg := range messages {
		fmt.Println(formatter.Format(feed.Event{
			Type:      feed.EventMessage,
			Timestamp: time.UnixMilli(msg.SentAt),
			UserName:  msg.UserName,
			Body:      msg.Body,
		}))
	}
}
