package core

import "time"

// PlaybackState is the fact the host broadcasts: track, play flag, position,
// and the wall-clock instant the position was recorded. Listeners never trust
// Position directly; they project it forward from ServerTime.
type PlaybackState struct {
	TrackID    string  `json:"track_id"`
	IsPlaying  bool    `json:"is_playing"`
	Position   float64 `json:"position"`    // seconds at ServerTime
	ServerTime int64   `json:"server_time"` // unix milliseconds
}

// Projected returns the position the host should be at as of now, in
// seconds: the reported position plus elapsed wall-clock time if playing.
func (s *PlaybackState) Projected(now time.Time) float64 {
	if s == nil {
		return 0
	}
	p := s.Position
	if s.IsPlaying && s.ServerTime > 0 {
		p += float64(now.UnixMilli()-s.ServerTime) / 1000
	}
	if p < 0 {
		return 0
	}
	return p
}

// HasTrack returns true if a track is loaded.
func (s *PlaybackState) HasTrack() bool {
	return s != nil && s.TrackID != ""
}
