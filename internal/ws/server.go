package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketbid/internal/biderrors"
	"marketbid/internal/services/bidding"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // auth lives upstream
}

// WsServer attaches viewers to listing rooms. The channel is one-way:
// viewers receive bid and close events; bids are placed over HTTP.
type WsServer struct {
	hub        *Hub
	subMgr     *subscriptionManager // nil when running without Redis
	biddingSvc bidding.IBiddingService
}

// NewWsServer builds the server. rdc may be nil: events then only reach
// viewers connected to this instance (memory backend).
func NewWsServer(h *Hub, rdc *redis.Client, biddingSvc bidding.IBiddingService) *WsServer {
	srv := &WsServer{
		hub:        h,
		biddingSvc: biddingSvc,
	}
	if rdc != nil {
		srv.subMgr = newSubscriptionManager(rdc, h)
	}
	return srv
}

// Handle is the Gin entry-point for GET /ws?listing_id=<id>.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	listingID := ginCtx.Query("listing_id")
	if listingID == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "listing_id is required"})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(512)

	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Join(listingID, wsConn)
	if s.subMgr != nil {
		s.subMgr.Subscribe(listingID) // may be a no-op (already subscribed)
	}

	if err := s.pushInitialSnapshot(ginCtx, listingID, wsConn); err != nil &&
		!errors.Is(err, biderrors.ErrListingNotFound) {
		zap.L().Warn("ws.snapshot", zap.Error(err))
	}

	go s.reader(listingID, wsConn)
	go s.pinger(wsConn)
}

func (s *WsServer) pushInitialSnapshot(ginCtx *gin.Context, listingID string, conn *clientConn) error {
	listing, err := s.biddingSvc.GetListing(ginCtx.Request.Context(), listingID)
	if err != nil {
		return err
	}
	bids, err := s.biddingSvc.ListBids(ginCtx.Request.Context(), listingID)
	if err != nil {
		return err
	}
	return conn.writeJSON(gin.H{
		"event": EventSnapshot,
		"body":  SnapshotBody{Listing: listing, Bids: bids},
	})
}

// reader drains inbound frames so pongs and close frames are processed,
// and tears the connection down when the viewer goes away.
func (s *WsServer) reader(listingID string, conn *clientConn) {
	defer func() {
		s.hub.Leave(listingID, conn)
		if s.subMgr != nil {
			s.subMgr.Unsubscribe(listingID)
		}
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.rawConn.ReadMessage(); err != nil {
			return // viewer closed or errored
		}
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}
