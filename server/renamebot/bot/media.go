package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"renamer/server/records/domain"
)

// Media is one of DocumentMedia, VideoMedia or AudioMedia.
type Media interface {
	Kind() domain.MediaKind
	Name() string
	Size() int64
	sealed()
}

type DocumentMedia struct {
	FileName string
	MimeType string
	FileSize int64
}

type VideoMedia struct {
	FileName string
	MimeType string
	FileSize int64
	Duration int
	Width    int
	Height   int
}

type AudioMedia struct {
	FileName  string
	MimeType  string
	FileSize  int64
	Duration  int
	Title     string
	Performer string
}

func (DocumentMedia) Kind() domain.MediaKind { return domain.KindDocument }
func (VideoMedia) Kind() domain.MediaKind    { return domain.KindVideo }
func (AudioMedia) Kind() domain.MediaKind    { return domain.KindAudio }

func (m DocumentMedia) Name() string { return m.FileName }
func (m VideoMedia) Name() string    { return m.FileName }

// Name falls back to the tagged title for audio sent without a file name.
func (m AudioMedia) Name() string {
	if m.FileName != "" {
		return m.FileName
	}
	return m.Title
}

func (m DocumentMedia) Size() int64 { return m.FileSize }
func (m VideoMedia) Size() int64    { return m.FileSize }
func (m AudioMedia) Size() int64    { return m.FileSize }

func (DocumentMedia) sealed() {}
func (VideoMedia) sealed()    {}
func (AudioMedia) sealed()    {}

func mediaOf(msg *tgbotapi.Message) (Media, bool) {
	if msg == nil {
		return nil, false
	}
	switch {
	case msg.Document != nil:
		d := msg.Document
		return DocumentMedia{FileName: d.FileName, MimeType: d.MimeType, FileSize: int64(d.FileSize)}, true
	case msg.Video != nil:
		v := msg.Video
		return VideoMedia{
			FileName: v.FileName,
			MimeType: v.MimeType,
			FileSize: int64(v.FileSize),
			Duration: v.Duration,
			Width:    v.Width,
			Height:   v.Height,
		}, true
	case msg.Audio != nil:
		a := msg.Audio
		return AudioMedia{
			FileName:  a.FileName,
			MimeType:  a.MimeType,
			FileSize:  int64(a.FileSize),
			Duration:  a.Duration,
			Title:     a.Title,
			Performer: a.Performer,
		}, true
	default:
		return nil, false
	}
}

func displayName(m Media) string {
	if name := m.Name(); name != "" {
		return name
	}
	return "file.mp4"
}
