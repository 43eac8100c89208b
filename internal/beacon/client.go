// Package beacon turns page activity into collector events.
//
// A Client lives exactly as long as one page load: construct it when the
// document loads, call Start, feed it clicks, scrolls and signals, and Close it
// when the page is hidden or unloaded. Every tracking call returns immediately
// and never reports delivery problems to the caller.
package beacon

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/vincentbai/visionui-beacon/internal/bus"
	"github.com/vincentbai/visionui-beacon/internal/classify"
	"github.com/vincentbai/visionui-beacon/internal/logger"
	"github.com/vincentbai/visionui-beacon/internal/models"
	"github.com/vincentbai/visionui-beacon/internal/scroll"
	"github.com/vincentbai/visionui-beacon/internal/session"
)

// Dispatcher starts delivery of a serialized event without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, body []byte)
}

// Client is the per-page tracking context.
type Client struct {
	sessions *session.Sessions
	out      Dispatcher
	log      logger.Logger
	now      func() time.Time
	bus      *bus.Bus
	debounce *scroll.Debouncer
	start    time.Time
	depth    scroll.Depth

	mu          sync.Mutex
	page        models.Page
	started     bool
	ended       bool
	unsubscribe []func()
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithBus subscribes the client to login and registration signals on Start.
func WithBus(b *bus.Bus) Option {
	return func(c *Client) { c.bus = b }
}

// WithDebouncer replaces the scroll debouncer.
func WithDebouncer(d *scroll.Debouncer) Option {
	return func(c *Client) { c.debounce = d }
}

// New builds the tracking context of one page load. The session clock starts now.
func New(page models.Page, sessions *session.Sessions, out Dispatcher, opts ...Option) *Client {
	c := &Client{
		sessions: sessions,
		out:      out,
		log:      logger.NewNop(),
		now:      time.Now,
		page:     page,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.debounce == nil {
		c.debounce = scroll.NewDebouncer(scroll.DefaultQuiet)
	}
	c.start = c.now()
	return c
}

// Start reports the page view, detects a purchase-success landing page and
// subscribes to the page bus. Later calls do nothing.
func (c *Client) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	page := c.page
	if c.bus != nil {
		c.unsubscribe = append(c.unsubscribe,
			c.bus.Subscribe(bus.SignalRegistration, c.HandleSignal),
			c.bus.Subscribe(bus.SignalLogin, c.HandleSignal),
		)
	}
	c.mu.Unlock()

	c.TrackPageView()
	if isPurchaseSuccess(page) {
		// the query string is reported as is, even when empty
		search := page.Search
		c.TrackDetail(models.TagPurchaseComplete, &search)
	}
}

func isPurchaseSuccess(p models.Page) bool {
	return strings.Contains(p.Path, "post-purchase") ||
		strings.Contains(p.Path, "purchase-success") ||
		strings.Contains(p.Search, "success")
}

// SessionID returns the tab's session id, creating it on first use.
func (c *Client) SessionID() string {
	return c.sessions.GetOrCreate()
}

// Page returns the current page identity.
func (c *Client) Page() models.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Track reports event with an optional detail; an empty detail is sent as null.
func (c *Client) Track(event models.Tag, detail string) {
	c.TrackDetail(event, models.StringPtr(detail))
}

// TrackDetail reports event with a nullable detail.
func (c *Client) TrackDetail(event models.Tag, detail *string) {
	page := c.Page()
	c.send(models.Event{
		Event:     event,
		Page:      page.Path,
		Detail:    detail,
		Referrer:  models.StringPtr(page.Referrer),
		SessionID: c.SessionID(),
	})
}

// TrackPageView reports a page view of the current path.
func (c *Client) TrackPageView() {
	c.Track(models.TagPageView, "")
}

// Navigate records a client-side navigation (history back/forward) and
// reports a page view for the new location. The referrer is left untouched,
// as the document's referrer does not change on history navigation.
func (c *Client) Navigate(path, search string) {
	c.mu.Lock()
	c.page.Path = path
	c.page.Search = search
	c.mu.Unlock()
	c.TrackPageView()
}

// TrackSessionEnd reports how long the page was open, in whole seconds
// rounded to the nearest second. Only the first call per page sends anything,
// since hide and unload both end up here.
func (c *Client) TrackSessionEnd() {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	page := c.page
	c.mu.Unlock()

	duration := int64(math.Round(c.now().Sub(c.start).Seconds()))
	c.send(models.Event{
		Event:     models.TagSessionEnd,
		Page:      page.Path,
		Referrer:  models.StringPtr(page.Referrer),
		SessionID: c.SessionID(),
		Duration:  &duration,
	})
}

// HandleClick classifies the clicked link or button and reports it if a rule matches.
func (c *Client) HandleClick(el models.Element) {
	res, ok := classify.Classify(el)
	if !ok {
		return
	}
	c.Track(res.Tag, res.Detail)
}

// HandleScroll evaluates the scroll position once scrolling settles.
func (c *Client) HandleScroll(scrollY, scrollHeight, viewportHeight float64) {
	c.debounce.Call(func() {
		c.ObserveScroll(scroll.Percent(scrollY, scrollHeight, viewportHeight))
	})
}

// ObserveScroll applies the scroll-depth policy to a settled percentage.
func (c *Client) ObserveScroll(percent int) {
	if depth, ok := c.depth.Observe(percent); ok {
		c.Track(models.TagScrollDepth, fmt.Sprintf("%d%%", depth))
	}
}

// HandleSignal reports login and registration completions announced on the page bus.
func (c *Client) HandleSignal(s bus.Signal) {
	email := s.Email
	if email == "" {
		email = "unknown"
	}
	switch s.Name {
	case bus.SignalRegistration:
		c.Track(models.TagRegistration, email)
	case bus.SignalLogin:
		c.Track(models.TagLogin, email)
	}
}

// Close tears the page down: pending scroll evaluation is dropped, bus
// subscriptions are removed and the session end is reported if it was not yet.
func (c *Client) Close() {
	c.debounce.Stop()

	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	for _, u := range unsubscribe {
		u()
	}

	c.TrackSessionEnd()
}

func (c *Client) send(ev models.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug("Tracking call recovered", logger.String("event", string(ev.Event)), logger.String("panic", fmt.Sprint(r)))
		}
	}()
	body, err := json.Marshal(ev)
	if err != nil {
		c.log.Debug("Event serialization failed", logger.String("event", string(ev.Event)), logger.Error(err))
		return
	}
	c.out.Dispatch(context.Background(), body)
}
