// Package server hosts the tab bridge: pages connect over WebSocket, forward
// their DOM activity, and the bridge runs one beacon client per page load.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vincentbai/visionui-beacon/internal/beacon"
	"github.com/vincentbai/visionui-beacon/internal/database"
	"github.com/vincentbai/visionui-beacon/internal/logger"
	"github.com/vincentbai/visionui-beacon/internal/session"
)

// Options tune the bridge.
type Options struct {
	Address string
	// ScrollQuiet is the debounce window for scroll evaluation.
	ScrollQuiet time.Duration
	// TabTTL is how long an idle tab keeps its storage.
	TabTTL     time.Duration
	SweepEvery time.Duration
	// OriginPatterns lists host patterns allowed to open the tab socket.
	OriginPatterns []string
}

type Server struct {
	db      *database.Database
	out     beacon.Dispatcher
	log     logger.Logger
	opts    Options
	address string
	server  *http.Server

	now func() time.Time

	mu      sync.Mutex
	live    map[string]int // open connections per tab; never expired
	memTabs map[string]*memTab

	// tabs outlive http.Server.Shutdown once hijacked; they are ended through
	// tabsCtx and awaited through tabsWG.
	tabsCtx    context.Context
	cancelTabs context.CancelFunc
	tabsWG     sync.WaitGroup
}

type memTab struct {
	store *session.MemoryStore
	seen  time.Time
}

// NewServer builds the bridge. A nil db keeps tab storage in memory, expired by
// the same idle TTL as the database.
func NewServer(db *database.Database, out beacon.Dispatcher, log logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	tabsCtx, cancelTabs := context.WithCancel(context.Background())
	return &Server{
		db:         db,
		out:        out,
		log:        log,
		opts:       opts,
		address:    opts.Address,
		now:        time.Now,
		live:       make(map[string]int),
		memTabs:    make(map[string]*memTab),
		tabsCtx:    tabsCtx,
		cancelTabs: cancelTabs,
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) setupRoutes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/track", s.handleTrack)

	// gin's writer refuses to be hijacked once the 101 status is written, so
	// the tab socket is served next to the engine rather than through it.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleTab)
	mux.Handle("/", r)
	return mux
}

// tabStore returns the tab-scoped storage of tabID.
func (s *Server) tabStore(tabID string) session.Store {
	if s.db != nil {
		return s.db.Tab(tabID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.memTabs[tabID]
	if !ok {
		t = &memTab{store: session.NewMemoryStore(), seen: s.now()}
		s.memTabs[tabID] = t
	}
	return t.store
}

func (s *Server) touchTab(tabID string) {
	if s.db == nil {
		s.mu.Lock()
		if t, ok := s.memTabs[tabID]; ok {
			t.seen = s.now()
		}
		s.mu.Unlock()
		return
	}
	if err := s.db.Touch(tabID); err != nil {
		s.log.Warn("Failed to touch tab", logger.String("tab", tabID), logger.Error(err))
	}
}

func (s *Server) connectTab(tabID string) {
	s.mu.Lock()
	s.live[tabID]++
	s.mu.Unlock()
}

func (s *Server) disconnectTab(tabID string) {
	s.mu.Lock()
	if s.live[tabID] <= 1 {
		delete(s.live, tabID)
	} else {
		s.live[tabID]--
	}
	s.mu.Unlock()
	s.touchTab(tabID)
}

func (s *Server) liveTabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]string, 0, len(s.live))
	for tabID := range s.live {
		tabs = append(tabs, tabID)
	}
	return tabs
}

// sweep drops storage of tabs that have been idle longer than the TTL.
func (s *Server) sweep(ctx context.Context) {
	if s.opts.TabTTL <= 0 || s.opts.SweepEvery <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeIdle()
		}
	}
}

// purgeIdle runs one janitor pass. Connected tabs are refreshed first so a page
// left open past the TTL keeps its session.
func (s *Server) purgeIdle() {
	for _, tabID := range s.liveTabs() {
		s.touchTab(tabID)
	}

	if s.db == nil {
		s.purgeMemTabs()
		return
	}
	n, err := s.db.PurgeIdle(s.opts.TabTTL)
	if err != nil {
		s.log.Error("Failed to purge idle tabs", logger.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("Purged idle tabs", logger.Int("rows", int(n)))
	}
}

func (s *Server) purgeMemTabs() {
	cutoff := s.now().Add(-s.opts.TabTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for tabID, t := range s.memTabs {
		if s.live[tabID] == 0 && t.seen.Before(cutoff) {
			delete(s.memTabs, tabID)
			n++
		}
	}
	if n > 0 {
		s.log.Info("Purged idle tabs", logger.Int("tabs", n))
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.sweep(ctx)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Beacon bridge listening", logger.String("address", s.address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.log.Info("Shutting down bridge")

	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.server.Shutdown(shutdownContext)
	s.CloseTabs()
	if err != nil {
		return err
	}
	s.log.Info("Bridge exited")
	return nil
}

// CloseTabs ends every connected page and waits for their teardown.
func (s *Server) CloseTabs() {
	s.cancelTabs()
	s.tabsWG.Wait()
}
