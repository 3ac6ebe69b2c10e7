package queue

import "context"

// Publisher is the outbound notification capability the auth core depends
// on. Delivery is best effort: a failed publish is logged by the caller and
// never fails the request that triggered it.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }
