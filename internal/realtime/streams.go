package realtime

import "strings"

// StreamPitchDeck carries deck import and slide events.
const StreamPitchDeck = "pitch-deck"

// Events published on StreamPitchDeck.
const (
	EventImportStarted   = "import.started"
	EventSlideExtracted  = "slide.extracted"
	EventSlideFailed     = "slide.failed"
	EventImportCompleted = "import.completed"
	EventDeckCleared     = "deck.cleared"
)

// Publisher delivers events to stream subscribers.
type Publisher interface {
	Publish(stream, event string, data any)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, any) {}

// ParseStreams splits comma separated stream lists and returns the distinct
// normalised names in first-seen order.
func ParseStreams(values ...string) []string {
	var streams []string
	for _, value := range values {
		streams = append(streams, strings.Split(value, ",")...)
	}
	return UniqueStreams(streams)
}

// UniqueStreams normalises names, dropping blanks and duplicates.
func UniqueStreams(streams []string) []string {
	seen := make(map[string]struct{}, len(streams))
	var out []string
	for _, stream := range streams {
		stream = normalizeStream(stream)
		if stream == "" {
			continue
		}
		if _, dup := seen[stream]; dup {
			continue
		}
		seen[stream] = struct{}{}
		out = append(out, stream)
	}
	return out
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}
