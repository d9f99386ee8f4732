package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	commonlog "renamer/server/common/log"
	"renamer/server/records/domain"
	"renamer/server/streamer/source"
)

const (
	// PartSize is the upload.getFile limit; offsets are aligned to it.
	PartSize = 1 << 20

	botAPIChannelShift = 1_000_000_000_000
)

// rpc is the slice of *tg.Client the source calls.
type rpc interface {
	ChannelsGetMessages(ctx context.Context, req *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
	ChannelsGetChannels(ctx context.Context, id []tg.InputChannelClass) (tg.MessagesChatsClass, error)
	UploadGetFile(ctx context.Context, req *tg.UploadGetFileRequest) (tg.UploadFileClass, error)
}

type peerStore interface {
	AccessHash(channelID int64) (int64, bool, error)
	SetAccessHash(channelID, accessHash int64) error
}

type invokers interface {
	API() (rpc, error)
	DC(ctx context.Context, dc int) (rpc, error)
}

type fileLocation struct {
	input *tg.InputDocumentFileLocation
	dc    int
}

type Source struct {
	conn    invokers
	peers   peerStore
	handles *source.HandleCache

	mu     sync.Mutex
	hashes map[int64]int64
}

func NewSource(conn *Client, peers *Storage, handles *source.HandleCache) *Source {
	return newSource(conn, peers, handles)
}

func newSource(conn invokers, peers peerStore, handles *source.HandleCache) *Source {
	return &Source{conn: conn, peers: peers, handles: handles, hashes: map[int64]int64{}}
}

// ChannelID converts a Bot API channel id (-100XXXXXXXXXX) to the bare MTProto
// id. Positive ids pass through.
func ChannelID(botAPIID int64) int64 {
	if botAPIID < 0 {
		return -botAPIID - botAPIChannelShift
	}
	return botAPIID
}

func (s *Source) Resolve(ctx context.Context, loc domain.Locator) (*source.Handle, error) {
	if h, ok := s.handles.Get(loc); ok {
		return h, nil
	}
	api, err := s.conn.API()
	if err != nil {
		return nil, err
	}

	channelID := ChannelID(loc.ContainerID)
	res, err := api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
		Channel: &tg.InputChannel{ChannelID: channelID, AccessHash: s.accessHash(channelID)},
		ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: int(loc.MessageID)}},
	})
	if err != nil {
		return nil, source.TransientError.Wrap(err)
	}

	msg, ok := findMessage(res, int(loc.MessageID))
	if !ok {
		return nil, fmt.Errorf("message %d not found in channel %d", loc.MessageID, channelID)
	}
	media, ok := msg.Media.(*tg.MessageMediaDocument)
	if !ok {
		return nil, fmt.Errorf("message %d carries no document", loc.MessageID)
	}
	doc, ok := media.Document.(*tg.Document)
	if !ok {
		return nil, fmt.Errorf("message %d document is empty", loc.MessageID)
	}

	h := handleFromDocument(loc, doc)
	s.handles.Set(h)
	return h, nil
}

// Refresh re-learns the channel access hash. Bots may query channels they
// administer with a zero hash.
func (s *Source) Refresh(ctx context.Context, container int64) error {
	api, err := s.conn.API()
	if err != nil {
		return err
	}
	channelID := ChannelID(container)
	res, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{&tg.InputChannel{ChannelID: channelID}})
	if err != nil {
		return fmt.Errorf("get channel %d: %w", channelID, err)
	}

	var chats []tg.ChatClass
	switch r := res.(type) {
	case *tg.MessagesChats:
		chats = r.Chats
	case *tg.MessagesChatsSlice:
		chats = r.Chats
	}
	for _, c := range chats {
		ch, ok := c.(*tg.Channel)
		if !ok || ch.ID != channelID {
			continue
		}
		s.setAccessHash(channelID, ch.AccessHash)
		s.handles.PurgeContainer(container)
		commonlog.Infof("refreshed channel %d (%s)", channelID, ch.Title)
		return nil
	}
	return fmt.Errorf("channel %d not visible to bot", channelID)
}

func (s *Source) Stream(ctx context.Context, h *source.Handle, offset int64) (source.ChunkIter, error) {
	loc, ok := h.Location.(fileLocation)
	if !ok {
		return nil, fmt.Errorf("handle for message %d was not resolved by telegram", h.Locator.MessageID)
	}
	api, err := s.conn.API()
	if err != nil {
		return nil, err
	}
	return newPartIter(s, api, h.Locator, loc, h.Size, offset), nil
}

func (s *Source) accessHash(channelID int64) int64 {
	s.mu.Lock()
	hash, ok := s.hashes[channelID]
	s.mu.Unlock()
	if ok {
		return hash
	}
	hash, found, err := s.peers.AccessHash(channelID)
	if err != nil {
		commonlog.Warnf("load access hash channel=%d: %v", channelID, err)
		return 0
	}
	if found {
		s.mu.Lock()
		s.hashes[channelID] = hash
		s.mu.Unlock()
	}
	return hash
}

func (s *Source) setAccessHash(channelID, hash int64) {
	s.mu.Lock()
	s.hashes[channelID] = hash
	s.mu.Unlock()
	if err := s.peers.SetAccessHash(channelID, hash); err != nil {
		commonlog.Warnf("persist access hash channel=%d: %v", channelID, err)
	}
}

func (s *Source) migrate(ctx context.Context, err error) (rpc, bool, error) {
	rpcErr, ok := tgerr.AsType(err, "FILE_MIGRATE")
	if !ok {
		return nil, false, nil
	}
	api, derr := s.conn.DC(ctx, rpcErr.Argument)
	if derr != nil {
		return nil, true, fmt.Errorf("connect dc %d: %w", rpcErr.Argument, derr)
	}
	return api, true, nil
}

func findMessage(res tg.MessagesMessagesClass, id int) (*tg.Message, bool) {
	var msgs []tg.MessageClass
	switch r := res.(type) {
	case *tg.MessagesChannelMessages:
		msgs = r.Messages
	case *tg.MessagesMessages:
		msgs = r.Messages
	case *tg.MessagesMessagesSlice:
		msgs = r.Messages
	}
	for _, m := range msgs {
		if msg, ok := m.(*tg.Message); ok && msg.ID == id {
			return msg, true
		}
	}
	return nil, false
}

func handleFromDocument(loc domain.Locator, doc *tg.Document) *source.Handle {
	h := &source.Handle{
		Locator:  loc,
		Size:     doc.Size,
		MimeType: doc.MimeType,
		Kind:     domain.KindDocument,
		Location: fileLocation{
			input: &tg.InputDocumentFileLocation{
				ID:            doc.ID,
				AccessHash:    doc.AccessHash,
				FileReference: doc.FileReference,
			},
			dc: doc.DCID,
		},
	}
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			h.FileName = a.FileName
		case *tg.DocumentAttributeVideo:
			h.Kind = domain.KindVideo
		case *tg.DocumentAttributeAudio:
			h.Kind = domain.KindAudio
		}
	}
	return h
}
