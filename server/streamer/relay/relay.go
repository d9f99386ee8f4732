package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/zeebo/errs"

	"renamer/server/common/infra/mq"
	commonlog "renamer/server/common/log"
	"renamer/server/records/domain"
	"renamer/server/records/repository"
	"renamer/server/streamer/source"
)

const DefaultFilename = "file.mp4"

type Store interface {
	Lookup(ctx context.Context, token string) (domain.MediaRecord, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Outcome describes a response that was started. Partial delivery to a client
// that went away is still a success.
type Outcome struct {
	Status       int
	Bytes        int64
	Disconnected bool
	Truncated    bool
	Filename     string
}

type DownloadServed struct {
	Token        string    `json:"token"`
	Status       int       `json:"status"`
	Bytes        int64     `json:"bytes"`
	Disconnected bool      `json:"disconnected"`
	ServedAt     time.Time `json:"served_at"`
}

type Relay struct {
	store  Store
	source source.Source
	events EventPublisher
}

func New(store Store, src source.Source, events EventPublisher) *Relay {
	return &Relay{store: store, source: src, events: events}
}

type plan struct {
	record   domain.MediaRecord
	handle   *source.Handle
	filename string
	size     int64
	window   Window
}

// Serve streams the media behind token into out. Errors are only returned
// before any header is written; once streaming starts failures are logged and
// the body is cut short.
func (r *Relay) Serve(ctx context.Context, token, rangeHeader string, out Output, monitor DisconnectMonitor) (outcome Outcome, err error) {
	defer func() { _ = out.Close() }()

	start := time.Now()
	activeDownloads.Inc()
	defer activeDownloads.Dec()

	p, err := r.prepare(ctx, token, rangeHeader)
	if err != nil {
		downloadsTotal.WithLabelValues(resultLabel(err)).Inc()
		return Outcome{}, err
	}

	iter, err := r.source.Stream(ctx, p.handle, p.window.Offset)
	if err != nil {
		downloadsTotal.WithLabelValues(resultError).Inc()
		return Outcome{}, fmt.Errorf("open stream: %w", err)
	}
	defer func() { _ = iter.Close() }()

	writeHeaders(out, p)
	out.WriteHeader(p.window.Status)

	outcome = r.forward(ctx, token, iter, out, monitor, p.window.Length)
	outcome.Status = p.window.Status
	outcome.Filename = p.filename

	switch {
	case outcome.Disconnected:
		downloadsTotal.WithLabelValues(resultDisconnected).Inc()
	case outcome.Truncated:
		downloadsTotal.WithLabelValues(resultStreamError).Inc()
	default:
		downloadsTotal.WithLabelValues(resultComplete).Inc()
	}
	downloadBytesTotal.Add(float64(outcome.Bytes))
	downloadDuration.Observe(time.Since(start).Seconds())

	commonlog.Debugf("download token=%s status=%d bytes=%d disconnected=%t", token, outcome.Status, outcome.Bytes, outcome.Disconnected)
	r.publishServed(ctx, token, outcome)
	return outcome, nil
}

// Head writes the headers Serve would send without touching the stream.
func (r *Relay) Head(ctx context.Context, token, rangeHeader string, out Output) (Outcome, error) {
	defer func() { _ = out.Close() }()

	p, err := r.prepare(ctx, token, rangeHeader)
	if err != nil {
		return Outcome{}, err
	}
	writeHeaders(out, p)
	out.WriteHeader(p.window.Status)
	return Outcome{Status: p.window.Status, Filename: p.filename}, nil
}

func (r *Relay) prepare(ctx context.Context, token, rangeHeader string) (plan, error) {
	rec, err := r.store.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return plan{}, ErrLinkExpired
		}
		return plan{}, fmt.Errorf("lookup token: %w", err)
	}

	handle, err := r.resolve(ctx, rec.Locator)
	if err != nil {
		return plan{}, err
	}

	size := rec.DeclaredSize
	if size <= 0 {
		size = handle.Size
	}

	var window Window
	if size <= 0 {
		if strings.TrimSpace(rangeHeader) != "" {
			return plan{}, MalformedRangeError.New("range on media of unknown size")
		}
		window = Window{Offset: 0, Length: -1, Status: http.StatusOK}
	} else {
		window, err = ResolveRange(size, rangeHeader)
		if err != nil {
			return plan{}, err
		}
		if err := validateWindow(window, size); err != nil {
			return plan{}, err
		}
	}

	return plan{
		record:   rec,
		handle:   handle,
		filename: pickFilename(rec.DisplayName, handle.FileName),
		size:     size,
		window:   window,
	}, nil
}

// resolve allows exactly one forced refresh of the container before giving up.
func (r *Relay) resolve(ctx context.Context, loc domain.Locator) (*source.Handle, error) {
	handle, err := r.source.Resolve(ctx, loc)
	if err == nil {
		return handle, nil
	}
	commonlog.Warnf("resolve container=%d message=%d: %v; refreshing", loc.ContainerID, loc.MessageID, err)

	if rerr := r.source.Refresh(ctx, loc.ContainerID); rerr != nil {
		sourceRefreshTotal.WithLabelValues("refresh_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrFileMissing, errs.Combine(err, rerr))
	}
	handle, err = r.source.Resolve(ctx, loc)
	if err != nil {
		sourceRefreshTotal.WithLabelValues("still_missing").Inc()
		return nil, fmt.Errorf("%w: %w", ErrFileMissing, err)
	}
	sourceRefreshTotal.WithLabelValues("recovered").Inc()
	return handle, nil
}

// forward copies at most limit bytes, or everything when limit is negative.
// One chunk is held at a time and the monitor is polled before each pull.
func (r *Relay) forward(ctx context.Context, token string, iter source.ChunkIter, out Output, monitor DisconnectMonitor, limit int64) Outcome {
	var o Outcome
	remaining := limit
	for remaining != 0 {
		if monitor.Closed() {
			o.Disconnected = true
			return o
		}
		if !iter.Next(ctx) {
			if err := iter.Err(); err != nil {
				if monitor.Closed() {
					o.Disconnected = true
					return o
				}
				commonlog.Errorf("stream token=%s after %d bytes: %v", token, o.Bytes, err)
				o.Truncated = true
			} else if remaining > 0 {
				commonlog.Warnf("stream token=%s ended %d bytes short", token, remaining)
				o.Truncated = true
			}
			return o
		}

		chunk := iter.Chunk()
		if remaining > 0 && int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		if len(chunk) == 0 {
			continue
		}
		n, err := out.Write(chunk)
		o.Bytes += int64(n)
		if remaining > 0 {
			remaining -= int64(n)
		}
		if err != nil {
			// a failed write means the peer is gone
			commonlog.Debugf("write token=%s: %v", token, err)
			o.Disconnected = true
			return o
		}
	}
	return o
}

func (r *Relay) publishServed(ctx context.Context, token string, o Outcome) {
	if r.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	err := r.events.Publish(pubCtx, mq.KeyDownloadServed, DownloadServed{
		Token:        token,
		Status:       o.Status,
		Bytes:        o.Bytes,
		Disconnected: o.Disconnected,
		ServedAt:     time.Now().UTC(),
	})
	if err != nil {
		commonlog.Warnf("publish %s token=%s: %v", mq.KeyDownloadServed, token, err)
	}
}

func writeHeaders(out Output, p plan) {
	h := out.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", contentDisposition(p.filename))
	if p.window.Length >= 0 {
		h.Set("Content-Length", strconv.FormatInt(p.window.Length, 10))
	}
	if p.size > 0 {
		h.Set("Accept-Ranges", "bytes")
	}
	if p.window.Ranged {
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", p.window.Offset, p.window.End(), p.size))
	}
}

func pickFilename(displayName, intrinsic string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	if name := strings.TrimSpace(intrinsic); name != "" {
		return name
	}
	return DefaultFilename
}

func contentDisposition(name string) string {
	fallback, ascii := asciiFilename(name)
	if ascii {
		return `attachment; filename="` + fallback + `"`
	}
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + encodeExtValue(name)
}

// asciiFilename makes name safe inside a quoted-string. The bool reports
// whether name was already plain ASCII.
func asciiFilename(name string) (string, bool) {
	var b strings.Builder
	ascii := true
	for _, r := range name {
		switch {
		case r > unicode.MaxASCII:
			ascii = false
			b.WriteByte('_')
		case r == '"' || r == '\\' || unicode.IsControl(r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), ascii
}

// encodeExtValue percent-encodes everything outside the RFC 5987 attr-char set.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrLinkExpired), errors.Is(err, ErrFileMissing):
		return resultNotFound
	case MalformedRangeError.Has(err):
		return resultBadRange
	default:
		return resultError
	}
}
