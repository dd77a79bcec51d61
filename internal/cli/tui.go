package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/auxroom/auxroom/internal/feed"
	"github.com/auxroom/auxroom/internal/identity"
	"github.com/auxroom/auxroom/internal/session"
	"github.com/auxroom/auxroom/internal/tui"
	"github.com/auxroom/auxroom/internal/tui/styles"
)

var uiCmd = &cobra.Command{
	Use:     "ui [room-id]",
	Aliases: []string{"tui"},
	Short:   "Open the full-screen room view",
	Long: `Opens an interactive terminal UI showing the current track, the queue,
who is in the room, and a live activity feed. The host can drive playback
from here; everyone can chat and react.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	roomID, err := requireRoom(args)
	if err != nil {
		return err
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

	updates := make(chan struct{}, 1)
	sess, err := session.Join(ctx, session.Options{
		Config: cfg,
		Store:  st,
		Bus:    b,
		Self:   self,
		OnUpdate: func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		},
	}, roomID)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := identity.SaveCurrentRoom(roomID); err != nil {
		log.Debugw("saving current room", "err", err)
	}

	// The activity feed gets its own view of both transports so the UI can
	// narrate what the session is reacting to.
	observer := feed.NewObserver()
	stopWatch, err := st.Watch(ctx, roomID, observer.ObserveSnapshot)
	if err != nil {
		return err
	}
	defer stopWatch()

	events, unsubscribe, err := b.Subscribe(ctx, roomID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				observer.ObserveBus(evt)
			}
		}
	}()

	return tui.Run(&tui.App{
		Session: sess,
		Feed:    observer.Events(),
		Updates: updates,
		Theme:   styles.New(cfg.TUI.Theme),
		Refresh: time.Duration(cfg.TUI.RefreshInterval) * time.Millisecond,
	})
}
