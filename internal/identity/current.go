package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/auxroom/auxroom/internal/config"
)

const currentRoomFileName = "current_room"

// currentRoomPath returns the file that records the last joined room, so
// one-shot commands know which room they operate on.
func currentRoomPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, currentRoomFileName), nil
}

// SaveCurrentRoom records roomID as the active room.
func SaveCurrentRoom(roomID string) error {
	path, err := currentRoomPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(roomID+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to record current room: %w", err)
	}
	return nil
}

// CurrentRoom returns the recorded active room, or "" when none is set.
func CurrentRoom() (string, error) {
	path, err := currentRoomPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read current room: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ClearCurrentRoom forgets the active room.
func ClearCurrentRoom() error {
	path, err := currentRoomPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear current room: %w", err)
	}
	return nil
}
