package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pricecheck/backend/internal/domain"
)

const progressWriteWait = 5 * time.Second

// StreamProgress upgrades to a websocket and pushes the session progress
// every interval until the session completes or the client goes away.
func (h *Handler) StreamProgress(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	progress, err := h.sessions.GetProgress(ctx, sessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin, h.allowedOrigins)
		},
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	// incoming messages are ignored; a read error means the client left
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.progressInterval)
	defer ticker.Stop()

	for {
		_ = ws.SetWriteDeadline(time.Now().Add(progressWriteWait))
		if err := ws.WriteJSON(progress); err != nil {
			return
		}
		if progress.Status == domain.SessionCompleted {
			closeStream(ws, websocket.CloseNormalClosure, "completed")
			return
		}

		select {
		case <-gone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		progress, err = h.sessions.GetProgress(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				closeStream(ws, websocket.CloseNormalClosure, "session deleted")
			} else {
				closeStream(ws, websocket.CloseInternalServerErr, "progress unavailable")
			}
			return
		}
	}
}

func closeStream(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(progressWriteWait))
}
