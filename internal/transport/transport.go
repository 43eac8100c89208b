// Package transport delivers serialized events to the collector.
//
// Delivery is best effort: nothing here retries, queues for later or reports
// a failure to the code that emitted the event.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vincentbai/visionui-beacon/internal/logger"
)

const (
	ChannelBeacon    = "beacon"
	ChannelKeepalive = "keepalive"

	defaultTimeout = 10 * time.Second
	defaultWorkers = 4
)

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, body []byte) error
}

// HTTPSender posts JSON payloads to the collector. The response status and
// body are not inspected.
type HTTPSender struct {
	url    string
	client *http.Client
}

func NewHTTPSender(url string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSender{
		url: url,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (s *HTTPSender) Send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// BeaconSender is the exit-safe channel: Enqueue hands a payload to background
// workers and returns at once, and Close does not return before every accepted
// payload has been attempted.
type BeaconSender struct {
	next  Sender
	log   logger.Logger
	queue chan []byte

	mu      sync.RWMutex
	closing bool
	wg      sync.WaitGroup
}

// NewBeaconSender starts the background workers. capacity bounds the payloads
// waiting for a worker.
func NewBeaconSender(next Sender, capacity int, log logger.Logger) *BeaconSender {
	if capacity <= 0 {
		capacity = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	b := &BeaconSender{next: next, log: log, queue: make(chan []byte, capacity)}
	for i := 0; i < defaultWorkers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	return b
}

// Enqueue reports whether the payload was accepted. It never blocks.
func (b *BeaconSender) Enqueue(body []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closing {
		return false
	}
	select {
	case b.queue <- body:
		return true
	default:
		return false
	}
}

func (b *BeaconSender) work() {
	defer b.wg.Done()
	for body := range b.queue {
		attempt(context.Background(), b.next, body, ChannelBeacon, b.log)
	}
}

// Close stops accepting payloads and waits for the accepted ones. Safe to call twice.
func (b *BeaconSender) Close() {
	b.mu.Lock()
	if !b.closing {
		b.closing = true
		close(b.queue)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// KeepaliveSender is the fallback channel: every payload gets its own
// goroutine on a context detached from the caller, so the attempt outlives
// the page that emitted it.
type KeepaliveSender struct {
	next    Sender
	log     logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewKeepaliveSender(next Sender, timeout time.Duration, log logger.Logger) *KeepaliveSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &KeepaliveSender{next: next, log: log, timeout: timeout}
}

func (k *KeepaliveSender) Go(ctx context.Context, body []byte) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
		defer cancel()
		attempt(detached, k.next, body, ChannelKeepalive, k.log)
	}()
}

// Wait blocks until in-flight attempts finish.
func (k *KeepaliveSender) Wait() { k.wg.Wait() }

// attempt runs one send and swallows whatever goes wrong, panics included.
func attempt(ctx context.Context, s Sender, body []byte, channel string, log logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			metricFailures.WithLabelValues(channel).Inc()
			log.Debug("Beacon delivery panicked", logger.String("channel", channel), logger.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := s.Send(ctx, body); err != nil {
		metricFailures.WithLabelValues(channel).Inc()
		log.Debug("Beacon delivery failed", logger.String("channel", channel), logger.Error(err))
	}
}
