package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

// SignalBus implements domain.SignalBus in-process. Pub/sub fans out to
// subscriber channels; streams are append-only slices with 1-based sequence
// IDs.
type SignalBus struct {
	mu      sync.Mutex
	subs    map[string][]chan []byte
	streams map[string][][]byte
}

// NewSignalBus creates an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs:    make(map[string][]chan []byte),
		streams: make(map[string][][]byte),
	}
}

// Publish fans the payload out to every subscriber of the channel. Slow
// subscribers drop messages instead of blocking the publisher.
func (sb *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	for _, ch := range sb.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel that receives payloads published to the given
// channel name. The subscription ends when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	sb.mu.Lock()
	sb.subs[channel] = append(sb.subs[channel], ch)
	sb.mu.Unlock()

	go func() {
		<-ctx.Done()
		sb.mu.Lock()
		defer sb.mu.Unlock()
		subs := sb.subs[channel]
		for i, c := range subs {
			if c == ch {
				sb.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

// StreamAppend appends a payload to the named stream.
func (sb *SignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.streams[stream] = append(sb.streams[stream], payload)
	return nil
}

// StreamRead returns up to count entries after lastID ("" or "0" for the
// beginning).
func (sb *SignalBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	start := 0
	if lastID != "" && lastID != "0" {
		if _, err := fmt.Sscanf(lastID, "%d", &start); err != nil {
			return nil, fmt.Errorf("memory: bad stream id %q: %w", lastID, err)
		}
	}

	entries := sb.streams[stream]
	if start >= len(entries) {
		return nil, nil
	}

	var msgs []domain.StreamMessage
	for i := start; i < len(entries) && (count <= 0 || len(msgs) < count); i++ {
		msgs = append(msgs, domain.StreamMessage{
			ID:      fmt.Sprintf("%d", i+1),
			Payload: entries[i],
		})
	}
	return msgs, nil
}

// RateLimiter implements domain.RateLimiter with a fixed window per key,
// good enough for local mode and tests.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count int
	reset int64
}

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*window)}
}

// Allow counts a request against the key's window and reports whether it is
// within the limit.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, windowDur time.Duration) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixNano()
	w, ok := rl.windows[key]
	if !ok || now >= w.reset {
		w = &window{reset: now + windowDur.Nanoseconds()}
		rl.windows[key] = w
	}
	if w.count >= limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Compile-time interface checks.
var (
	_ domain.SignalBus   = (*SignalBus)(nil)
	_ domain.RateLimiter = (*RateLimiter)(nil)
)
