package domain

import (
	"strings"
	"time"
)

type User struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

type Track struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	AlbumImage  string `json:"albumImage,omitempty"`
	StreamingID string `json:"streamingId,omitempty"`
}

// Room is the durable projection of a live session. The playback offset is
// deliberately absent: it only travels on the transport.
type Room struct {
	RoomID    string    `json:"roomId"`
	HostEmail string    `json:"hostEmail"`
	Host      User      `json:"host"`
	Track     *Track    `json:"track"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameTrack reports whether a and b name the same song. Only name and artist
// are compared so offset-only reports never look like a change.
func SameTrack(a, b *Track) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(b.Name)) &&
		strings.EqualFold(strings.TrimSpace(a.Artist), strings.TrimSpace(b.Artist))
}

func trackKey(t *Track) string {
	if t == nil {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(t.Name)) + "\x00" + strings.ToLower(strings.TrimSpace(t.Artist))
}
