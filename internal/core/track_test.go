package core

import "testing"

func TestDetectProvenance(t *testing.T) {
	tests := []struct {
		url  string
		want Provenance
	}{
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", ProvenanceSpotify},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", ProvenanceYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", ProvenanceYouTube},
		{"https://example.com/audio/song.mp3", ProvenanceNative},
		{"", ProvenanceNative},
	}
	for _, tt := range tests {
		if got := DetectProvenance(tt.url); got != tt.want {
			t.Errorf("DetectProvenance(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
