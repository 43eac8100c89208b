package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vincentbai/visionui-beacon/internal/auth"
	"github.com/vincentbai/visionui-beacon/internal/beacon"
	"github.com/vincentbai/visionui-beacon/internal/bus"
	"github.com/vincentbai/visionui-beacon/internal/classify"
	"github.com/vincentbai/visionui-beacon/internal/logger"
	"github.com/vincentbai/visionui-beacon/internal/models"
	"github.com/vincentbai/visionui-beacon/internal/scroll"
	"github.com/vincentbai/visionui-beacon/internal/session"
)

// Message types exchanged with a connected page.
const (
	MsgHello        = "hello"
	MsgLoad         = "load"
	MsgClick        = "click"
	MsgScroll       = "scroll"
	MsgPopState     = "popstate"
	MsgSignal       = "signal"
	MsgAuthResponse = "auth_response"
	MsgPageHide     = "pagehide"
)

// Message is one frame of the tab socket.
type Message struct {
	Type string `json:"type"`
	Tab  string `json:"tab,omitempty"`

	Path     string `json:"path,omitempty"`
	Referrer string `json:"referrer,omitempty"`
	Search   string `json:"search,omitempty"`

	Element *models.Element `json:"element,omitempty"`
	HTML    string          `json:"html,omitempty"`

	ScrollY        float64 `json:"scroll_y,omitempty"`
	ScrollHeight   float64 `json:"scroll_height,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`

	Signal string `json:"signal,omitempty"`
	Email  string `json:"email,omitempty"`

	AuthKind string          `json:"auth_kind,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// page is the bridge-side state of one connection.
type page struct {
	tabID  string
	bus    *bus.Bus
	client *beacon.Client
	log    logger.Logger
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	tabID := r.URL.Query().Get("tab")
	if tabID == "" {
		tabID = uuid.NewString()
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: s.opts.OriginPatterns})
	if err != nil {
		s.log.Warn("Tab socket accept failed", logger.Error(err))
		return
	}

	s.tabsWG.Add(1)
	defer s.tabsWG.Done()
	metricTabsActive.Inc()
	defer metricTabsActive.Dec()
	s.connectTab(tabID)
	defer s.disconnectTab(tabID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.tabsCtx, cancel)
	defer stop()

	p := &page{tabID: tabID, bus: bus.New(), log: s.log.With(logger.String("tab", tabID))}
	defer p.end()

	if err := wsjson.Write(ctx, conn, Message{Type: MsgHello, Tab: tabID}); err != nil {
		p.log.Debug("Tab hello failed", logger.Error(err))
		return
	}

	for {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ws.CloseStatus(err) != ws.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				p.log.Debug("Tab socket closed", logger.Error(err))
			}
			break
		}
		metricMessages.WithLabelValues(msg.Type).Inc()
		s.handleMessage(p, msg)
	}
	_ = conn.Close(ws.StatusNormalClosure, "bye")
}

func (s *Server) newClient(tabID string, pg models.Page, b *bus.Bus) *beacon.Client {
	sessions := session.NewSessions(s.tabStore(tabID), nil, s.log)
	opts := []beacon.Option{beacon.WithLogger(s.log)}
	if b != nil {
		opts = append(opts, beacon.WithBus(b))
	}
	if s.opts.ScrollQuiet > 0 {
		opts = append(opts, beacon.WithDebouncer(scroll.NewDebouncer(s.opts.ScrollQuiet)))
	}
	return beacon.New(pg, sessions, s.out, opts...)
}

func (s *Server) handleMessage(p *page, msg Message) {
	if msg.Type == MsgLoad {
		p.end()
		p.client = s.newClient(p.tabID, models.Page{Path: msg.Path, Referrer: msg.Referrer, Search: msg.Search}, p.bus)
		p.client.Start()
		s.touchTab(p.tabID)
		return
	}
	if p.client == nil {
		p.log.Debug("Message before load ignored", logger.String("type", msg.Type))
		return
	}

	switch msg.Type {
	case MsgClick:
		el, ok := clickedElement(msg)
		if !ok {
			return
		}
		p.client.HandleClick(el)
	case MsgScroll:
		p.client.HandleScroll(msg.ScrollY, msg.ScrollHeight, msg.ViewportHeight)
	case MsgPopState:
		p.client.Navigate(msg.Path, msg.Search)
	case MsgSignal:
		p.bus.Publish(bus.Signal{Name: msg.Signal, Email: msg.Email})
	case MsgAuthResponse:
		resp, err := auth.Decode(msg.Body)
		if err != nil {
			p.log.Debug("Auth response ignored", logger.Error(err))
			return
		}
		sig, err := resp.Signal(msg.AuthKind)
		if err != nil {
			p.log.Debug("Auth response carries no signal", logger.Error(err))
			return
		}
		p.bus.Publish(sig)
	case MsgPageHide:
		p.end()
	default:
		p.log.Debug("Unknown message type", logger.String("type", msg.Type))
	}
}

func clickedElement(msg Message) (models.Element, bool) {
	if msg.Element != nil {
		return *msg.Element, true
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return models.Element{}, false
	}
	el, err := classify.ElementFromHTML(msg.HTML)
	if err != nil {
		return models.Element{}, false
	}
	return el, true
}

// end tears down the current page load, if any.
func (p *page) end() {
	if p.client == nil {
		return
	}
	p.client.Close()
	p.client = nil
}

type trackRequest struct {
	Tab      string `json:"tab"`
	Event    string `json:"event"`
	Detail   string `json:"detail"`
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

// handleTrack is the manual instrumentation entry point. Delivery problems are
// never reported back; only malformed requests are rejected.
func (s *Server) handleTrack(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	if req.Tab == "" || req.Event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tab and event are required"})
		return
	}

	tag := models.Tag(req.Event)
	if !tag.Known() {
		s.log.Debug("Tracking custom event", logger.String("event", req.Event))
	}
	client := s.newClient(req.Tab, models.Page{Path: req.Path, Referrer: req.Referrer}, nil)
	client.Track(tag, req.Detail)
	s.touchTab(req.Tab)
	c.Status(http.StatusNoContent)
}
