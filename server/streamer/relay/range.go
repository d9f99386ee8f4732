package relay

import (
	"net/http"
	"strconv"
	"strings"
)

// Window is the byte span of the media that a response carries.
type Window struct {
	Offset int64
	Length int64
	Status int
	Ranged bool
}

// End is the inclusive last byte offset.
func (w Window) End() int64 {
	return w.Offset + w.Length - 1
}

// ResolveRange maps a Range header onto size. It rejects inverted ranges but
// does not check bounds; callers validate the window against the media size.
func ResolveRange(size int64, header string) (Window, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Window{Offset: 0, Length: size, Status: http.StatusOK}, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return Window{}, MalformedRangeError.New("unsupported unit in %q", header)
	}
	if strings.Contains(spec, ",") {
		return Window{}, MalformedRangeError.New("multiple ranges in %q", header)
	}
	startRaw, endRaw, ok := strings.Cut(spec, "-")
	if !ok {
		return Window{}, MalformedRangeError.New("missing dash in %q", header)
	}
	startRaw = strings.TrimSpace(startRaw)
	endRaw = strings.TrimSpace(endRaw)
	if startRaw == "" {
		return Window{}, MalformedRangeError.New("suffix range %q", header)
	}

	start, err := strconv.ParseInt(startRaw, 10, 64)
	if err != nil {
		return Window{}, MalformedRangeError.New("bad start in %q", header)
	}
	end := size - 1
	if endRaw != "" {
		end, err = strconv.ParseInt(endRaw, 10, 64)
		if err != nil {
			return Window{}, MalformedRangeError.New("bad end in %q", header)
		}
	}
	if end < start {
		return Window{}, MalformedRangeError.New("inverted range %q", header)
	}

	return Window{
		Offset: start,
		Length: end - start + 1,
		Status: http.StatusPartialContent,
		Ranged: true,
	}, nil
}

// validateWindow never sums offset and length; a header like bytes=1-<max int64>
// would wrap around.
func validateWindow(w Window, size int64) error {
	if w.Offset < 0 || w.Offset >= size || w.Length <= 0 || w.Length > size-w.Offset {
		return MalformedRangeError.New("range at %d length %d outside 0-%d", w.Offset, w.Length, size-1)
	}
	return nil
}
