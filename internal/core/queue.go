package core

// Queue is the ordered room queue. Insertion order is playback order; the
// authoritative copy lives in the room store and every client mirrors it.
type Queue struct {
	Tracks []Track `json:"tracks"`
}

// Len returns the total number of tracks in the queue.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Find returns the track with the given id, or nil.
func (q *Queue) Find(trackID string) *Track {
	if q == nil {
		return nil
	}
	for i := range q.Tracks {
		if q.Tracks[i].ID == trackID {
			return &q.Tracks[i]
		}
	}
	return nil
}

// NextAfter returns the track following currentID in queue order.
// When currentID is empty or not found it returns the first track; when
// currentID is the last track it returns nil (no wraparound).
func (q *Queue) NextAfter(currentID string) *Track {
	if q.IsEmpty() {
		return nil
	}
	if currentID == "" {
		return &q.Tracks[0]
	}
	for i := range q.Tracks {
		if q.Tracks[i].ID == currentID {
			if i+1 >= len(q.Tracks) {
				return nil
			}
			return &q.Tracks[i+1]
		}
	}
	return &q.Tracks[0]
}

// PreviousBefore returns the track preceding currentID in queue order, or
// nil when currentID is empty, not found, or the first track.
func (q *Queue) PreviousBefore(currentID string) *Track {
	if q.IsEmpty() || currentID == "" {
		return nil
	}
	for i := range q.Tracks {
		if q.Tracks[i].ID == currentID {
			if i == 0 {
				return nil
			}
			return &q.Tracks[i-1]
		}
	}
	return nil
}

// Without returns a copy of the queue with the given track removed.
func (q *Queue) Without(trackID string) Queue {
	out := Queue{Tracks: make([]Track, 0, q.Len())}
	if q == nil {
		return out
	}
	for _, t := range q.Tracks {
		if t.ID != trackID {
			out.Tracks = append(out.Tracks, t)
		}
	}
	return out
}
