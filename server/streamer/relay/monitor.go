package relay

import "context"

type DisconnectMonitor interface {
	Closed() bool
}

// ContextMonitor reports the transport closed once the request context is
// done. net/http cancels it when the client connection goes away.
type ContextMonitor struct {
	ctx context.Context
}

func NewContextMonitor(ctx context.Context) ContextMonitor {
	return ContextMonitor{ctx: ctx}
}

func (m ContextMonitor) Closed() bool {
	return m.ctx.Err() != nil
}
