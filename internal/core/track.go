package core

import "strings"

// Provenance indicates the catalog a track was sourced from.
type Provenance string

const (
	ProvenanceNative  Provenance = "native"
	ProvenanceSpotify Provenance = "spotify"
	ProvenanceYouTube Provenance = "youtube"
)

// Track represents a playable audio track. Tracks are immutable once
// enqueued; a track added twice gets a fresh ID per add, so replays are
// distinct queue entries.
type Track struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	Album      string     `json:"album"`
	CoverURL   string     `json:"cover_url,omitempty"`
	SourceURL  string     `json:"source_url"`
	Duration   float64    `json:"duration"` // seconds
	Provenance Provenance `json:"provenance,omitempty"`
	ProviderID string     `json:"provider_id,omitempty"`
}

// DetectProvenance classifies a source URL by catalog.
func DetectProvenance(sourceURL string) Provenance {
	u := strings.ToLower(sourceURL)
	switch {
	case strings.Contains(u, "spotify.com"):
		return ProvenanceSpotify
	case strings.Contains(u, "youtube.com"), strings.Contains(u, "youtu.be"):
		return ProvenanceYouTube
	default:
		return ProvenanceNative
	}
}
