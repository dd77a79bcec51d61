package core

import "testing"

func threeTrackQueue() *Queue {
	return &Queue{Tracks: []Track{
		{ID: "a", Title: "Alpha"},
		{ID: "b", Title: "Bravo"},
		{ID: "c", Title: "Charlie"},
	}}
}

func TestNextAfter(t *testing.T) {
	q := threeTrackQueue()

	testCases := []struct {
		name      string
		currentID string
		want      string // expected track id, "" means nil
	}{
		{"middle", "a", "b"},
		{"second to last", "b", "c"},
		{"last returns nil", "c", ""},
		{"empty current returns first", "", "a"},
		{"unknown current returns first", "zzz", "a"},
	}

	for _, tc := range testCases {
		got := q.NextAfter(tc.currentID)
		if tc.want == "" {
			if got != nil {
				t.Errorf("%s: NextAfter(%q) = %v, want nil", tc.name, tc.currentID, got)
			}
			continue
		}
		if got == nil || got.ID != tc.want {
			t.Errorf("%s: NextAfter(%q) = %v, want id %q", tc.name, tc.currentID, got, tc.want)
		}
	}
}

func TestNextAfter_EmptyQueue(t *testing.T) {
	q := &Queue{}
	if got := q.NextAfter(""); got != nil {
		t.Errorf("NextAfter on empty queue = %v, want nil", got)
	}
}

func TestPreviousBefore(t *testing.T) {
	q := threeTrackQueue()

	testCases := []struct {
		name      string
		currentID string
		want      string
	}{
		{"middle", "b", "a"},
		{"last", "c", "b"},
		{"first returns nil", "a", ""},
		{"empty current returns nil", "", ""},
		{"unknown current returns nil", "zzz", ""},
	}

	for _, tc := range testCases {
		got := q.PreviousBefore(tc.currentID)
		if tc.want == "" {
			if got != nil {
				t.Errorf("%s: PreviousBefore(%q) = %v, want nil", tc.name, tc.currentID, got)
			}
			continue
		}
		if got == nil || got.ID != tc.want {
			t.Errorf("%s: PreviousBefore(%q) = %v, want id %q", tc.name, tc.currentID, got, tc.want)
		}
	}
}

func TestWithout(t *testing.T) {
	q := threeTrackQueue()
	out := q.Without("b")
	if out.Len() != 2 {
		t.Fatalf("Without left %d tracks, want 2", out.Len())
	}
	if out.Tracks[0].ID != "a" || out.Tracks[1].ID != "c" {
		t.Errorf("Without changed order: %v", out.Tracks)
	}
	if q.Len() != 3 {
		t.Errorf("Without mutated the receiver")
	}
}

func TestWithout_MissingIDIsNoop(t *testing.T) {
	q := threeTrackQueue()
	out := q.Without("zzz")
	if out.Len() != 3 {
		t.Errorf("Without(missing) left %d tracks, want 3", out.Len())
	}
}

func TestFind(t *testing.T) {
	q := threeTrackQueue()
	if got := q.Find("b"); got == nil || got.Title != "Bravo" {
		t.Errorf("Find(b) = %v, want Bravo", got)
	}
	if got := q.Find("zzz"); got != nil {
		t.Errorf("Find(zzz) = %v, want nil", got)
	}
}

func TestQueueAllowsDuplicateAdds(t *testing.T) {
	q := &Queue{}
	q.Tracks = append(q.Tracks, Track{ID: "x1", SourceURL: "file:///song.mp3"})
	q.Tracks = append(q.Tracks, Track{ID: "x2", SourceURL: "file:///song.mp3"})
	if q.Len() != 2 {
		t.Errorf("same source enqueued twice should yield two entries, got %d", q.Len())
	}
}
