package realtime

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"staycation/internal/domain"
	"staycation/internal/middleware"
	"staycation/internal/pkg/response"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Subscribed is the first frame of every connection.
type Subscribed struct {
	Event  string `json:"event"`
	Table  string `json:"table"`
	RoomID int64  `json:"room_id,omitempty"`
	Date   string `json:"date,omitempty"`
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from the given origins; an empty list allows any.
func NewHandler(hub *Hub, origins []string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// RegisterRoutes mounts GET /ws/bookings behind auth, normally
// middleware.QueryTokenAuth.
func (h *Handler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/ws/bookings", auth, h.ServeBookings)
}

func (h *Handler) ServeBookings(c *gin.Context) {
	var f Filter
	if v := c.Query("room_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_ROOM_ID", "room_id must be a positive integer")
			return
		}
		f.RoomID = id
	}
	if v := c.Query("date"); v != "" {
		if _, err := time.Parse(domain.DateLayout, v); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
		f.Date = v
	}

	log := zerolog.Ctx(c.Request.Context())
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	userID, _ := middleware.CurrentUserID(c)

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Subscribed{Event: "SUBSCRIBED", Table: "bookings", RoomID: f.RoomID, Date: f.Date}); err != nil {
		_ = conn.Close()
		return
	}

	sub := h.hub.Subscribe(f)
	log.Debug().Int64("user_id", userID).Int64("room_id", f.RoomID).Str("date", f.Date).Msg("realtime subscriber connected")

	go h.writeLoop(conn, sub)
	h.readLoop(conn)

	h.hub.Unsubscribe(sub)
	log.Debug().Int64("user_id", userID).Msg("realtime subscriber disconnected")
}

// readLoop only services control frames; clients never send data.
func (h *Handler) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writeLoop(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case change := <-sub.Changes():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"),
				time.Now().Add(writeWait))
			return
		}
	}
}
