package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"renamer/server/common/infra/mq"
	commonlog "renamer/server/common/log"
	"renamer/server/records/domain"
	"renamer/server/records/repository"
)

type messageCopier interface {
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type RenameRequest struct {
	FromChatID   int64
	MessageID    int
	NewName      string
	Kind         domain.MediaKind
	DeclaredSize int64
}

type RenameResult struct {
	Record domain.MediaRecord
	Link   string
}

type MediaRenamed struct {
	Token       string           `json:"token"`
	ContainerID int64            `json:"container_id"`
	MessageID   int64            `json:"message_id"`
	DisplayName string           `json:"display_name"`
	Kind        domain.MediaKind `json:"media_kind"`
	Size        int64            `json:"declared_size"`
	CreatedAt   time.Time        `json:"created_at"`
}

type RenameService struct {
	copier     messageCopier
	store      repository.Store
	events     EventPublisher
	binChannel int64
	publicURL  string
	newToken   func() (string, error)
	now        func() time.Time
}

func NewRenameService(copier messageCopier, store repository.Store, events EventPublisher, binChannel int64, publicURL string) *RenameService {
	return &RenameService{
		copier:     copier,
		store:      store,
		events:     events,
		binChannel: binChannel,
		publicURL:  publicURL,
		newToken:   domain.NewToken,
		now:        time.Now,
	}
}

func (s *RenameService) Link(token string) string {
	return domain.DownloadLink(s.publicURL, token)
}

// Rename copies the media into the bin channel and records it under a fresh
// token.
func (s *RenameService) Rename(ctx context.Context, req RenameRequest) (RenameResult, error) {
	if strings.TrimSpace(req.NewName) == "" {
		return RenameResult{}, errors.New("new name is required")
	}
	if s.binChannel == 0 {
		return RenameResult{}, errors.New("bin channel is not configured")
	}

	copied, err := s.copier.CopyMessage(tgbotapi.NewCopyMessage(s.binChannel, req.FromChatID, req.MessageID))
	if err != nil {
		return RenameResult{}, fmt.Errorf("copy to bin channel: %w", err)
	}

	token, err := s.newToken()
	if err != nil {
		return RenameResult{}, fmt.Errorf("generate token: %w", err)
	}
	rec := domain.MediaRecord{
		Token:        token,
		Locator:      domain.Locator{ContainerID: s.binChannel, MessageID: int64(copied.MessageID)},
		DeclaredSize: req.DeclaredSize,
		DisplayName:  req.NewName,
		Kind:         req.Kind,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return RenameResult{}, fmt.Errorf("save media record: %w", err)
	}

	if s.events != nil {
		err := s.events.Publish(ctx, mq.KeyMediaRenamed, MediaRenamed{
			Token:       rec.Token,
			ContainerID: rec.Locator.ContainerID,
			MessageID:   rec.Locator.MessageID,
			DisplayName: rec.DisplayName,
			Kind:        rec.Kind,
			Size:        rec.DeclaredSize,
			CreatedAt:   rec.CreatedAt,
		})
		if err != nil {
			commonlog.Warnf("publish %s token=%s: %v", mq.KeyMediaRenamed, rec.Token, err)
		}
	}

	commonlog.Infof("renamed message=%d to %q token=%s", copied.MessageID, rec.DisplayName, rec.Token)
	return RenameResult{Record: rec, Link: s.Link(rec.Token)}, nil
}
