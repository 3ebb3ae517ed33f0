package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/texture"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// UpdateMessage is pushed to clients after every publish. Renderers
// re-fetch a layer when the version moves and re-bind on Resized.
type UpdateMessage struct {
	texture.Update
	Slots gesture.Slots `json:"slots"`
}

// UpdatesHandler pushes bridge updates and gesture slots over WebSocket.
type UpdatesHandler struct {
	bridge *texture.Bridge
	slots  func() gesture.Slots
	log    *logrus.Entry
}

// NewUpdatesHandler creates a new UpdatesHandler. slots may be nil, in
// which case both slots are reported empty.
func NewUpdatesHandler(bridge *texture.Bridge, slots func() gesture.Slots, log *logrus.Entry) *UpdatesHandler {
	if slots == nil {
		slots = gesture.EmptySlots
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &UpdatesHandler{bridge: bridge, slots: slots, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *UpdatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Subscribe first so no publish between upgrade and the loop is lost.
	updates, unsubscribe := h.bridge.Subscribe()
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Clients only listen; reading is how a close is noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			msg := UpdateMessage{Update: u, Slots: h.slots()}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("WebSocket write failed")
				return
			}
		}
	}
}
