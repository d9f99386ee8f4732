package relay

import (
	"net/http"
	"sync"
)

// Output is the response sink. Close flushes and releases it; it must be safe
// to call more than once.
type Output interface {
	Header() http.Header
	WriteHeader(status int)
	Write(p []byte) (int, error)
	Close() error
}

type ResponseOutput struct {
	w           http.ResponseWriter
	once        sync.Once
	wroteHeader bool
}

func NewResponseOutput(w http.ResponseWriter) *ResponseOutput {
	return &ResponseOutput{w: w}
}

func (o *ResponseOutput) Header() http.Header {
	return o.w.Header()
}

func (o *ResponseOutput) WriteHeader(status int) {
	o.wroteHeader = true
	o.w.WriteHeader(status)
}

func (o *ResponseOutput) Write(p []byte) (int, error) {
	o.wroteHeader = true
	return o.w.Write(p)
}

// Close flushes only a response that was started so the caller can still
// write an error status afterwards.
func (o *ResponseOutput) Close() error {
	o.once.Do(func() {
		if !o.wroteHeader {
			return
		}
		if f, ok := o.w.(http.Flusher); ok {
			f.Flush()
		}
	})
	return nil
}
