package domain

import "time"

type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
)

func (k MediaKind) Valid() bool {
	switch k {
	case KindDocument, KindVideo, KindAudio:
		return true
	default:
		return false
	}
}

// Locator addresses one message in the bin channel. ContainerID is in Bot API
// form (-100...).
type Locator struct {
	ContainerID int64 `json:"container_id"`
	MessageID   int64 `json:"message_id"`
}

type MediaRecord struct {
	Token        string    `json:"token"`
	Locator      Locator   `json:"locator"`
	DeclaredSize int64     `json:"declared_size"`
	DisplayName  string    `json:"display_name"`
	Kind         MediaKind `json:"media_kind"`
	CreatedAt    time.Time `json:"created_at"`
}
