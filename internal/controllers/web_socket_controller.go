package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"sar_command/internal/middleware"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// DivisionFeedHub manages the live status feed: clients subscribe per
// incident and receive every division status change for it.
type DivisionFeedHub struct {
	incidentClients map[uint]map[*websocket.Conn]bool
	broadcast       chan map[string]interface{}
	mu              sync.Mutex
}

// NewDivisionFeedHub creates a hub and starts its broadcast loop.
func NewDivisionFeedHub() *DivisionFeedHub {
	hub := &DivisionFeedHub{
		incidentClients: make(map[uint]map[*websocket.Conn]bool),
		broadcast:       make(chan map[string]interface{}, 100),
	}
	go hub.run()
	return hub
}

// run delivers each broadcast message to the subscribers of its incident.
func (h *DivisionFeedHub) run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		incidentIDFloat, ok := msg["incident_id"].(float64)
		if !ok {
			logrus.Warn("Broadcast message missing 'incident_id'. Skipping broadcast.")
			h.mu.Unlock()
			continue
		}
		incidentID := uint(incidentIDFloat)

		if clients, exists := h.incidentClients[incidentID]; exists {
			for conn := range clients {
				go func(c *websocket.Conn, payload map[string]interface{}) {
					if err := c.WriteJSON(payload); err != nil {
						if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
							h.UnregisterClient(incidentID, c)
						} else {
							logrus.WithError(err).WithField("incident_id", incidentID).Warn("Failed to send feed message to client.")
						}
					}
				}(conn, msg)
			}
		}
		h.mu.Unlock()
	}
}

// RegisterClient subscribes a connection to an incident's feed.
func (h *DivisionFeedHub) RegisterClient(incidentID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.incidentClients[incidentID]; !ok {
		h.incidentClients[incidentID] = make(map[*websocket.Conn]bool)
	}
	h.incidentClients[incidentID][conn] = true
	logrus.WithFields(logrus.Fields{
		"incident_id": incidentID,
		"conn_ptr":    fmt.Sprintf("%p", conn),
	}).Info("Client registered with division feed.")
}

// UnregisterClient drops a connection from an incident's feed.
func (h *DivisionFeedHub) UnregisterClient(incidentID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.incidentClients[incidentID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.incidentClients, incidentID)
		}
	}
	logrus.WithFields(logrus.Fields{
		"incident_id": incidentID,
		"conn_ptr":    fmt.Sprintf("%p", conn),
	}).Info("Client unregistered from division feed.")
}

// PublishStatus queues a division status change for broadcast.
func (h *DivisionFeedHub) PublishStatus(incidentID uint, data map[string]interface{}) {
	data["incident_id"] = float64(incidentID)
	select {
	case h.broadcast <- data:
	default:
		logrus.Warn("Division feed channel full, dropping message.")
	}
}

var divisionFeed = NewDivisionFeedHub()

// authenticateFeedClient validates the JWT passed as a query parameter and
// resolves the incident being watched.
func authenticateFeedClient(c *gin.Context) (incidentID uint, err error) {
	tokenString := c.Query("token")
	if tokenString == "" {
		return 0, errors.New("missing authentication token")
	}
	token, err := middleware.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}
	if _, ok := token.Claims.(jwt.MapClaims); !ok {
		return 0, errors.New("invalid token claims")
	}

	raw := c.Query("incident_id")
	if raw == "" {
		return 0, errors.New("missing 'incident_id' query parameter")
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid 'incident_id' parameter: %w", err)
	}
	return uint(parsed), nil
}

// HandleDivisionFeed is the Gin handler for the live division status feed.
// Clients authenticate with a JWT query parameter and subscribe to one
// incident; the hub pushes every status change until the client hangs up.
func HandleDivisionFeed(c *gin.Context) {
	incidentID, authErr := authenticateFeedClient(c)
	if authErr != nil {
		logrus.WithError(authErr).Warn("Division feed connection attempt failed.")
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	divisionFeed.RegisterClient(incidentID, conn)
	defer divisionFeed.UnregisterClient(incidentID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("incident_id", incidentID).Info("Division feed WebSocket closed.")
			} else {
				logrus.WithError(err).WithField("incident_id", incidentID).Error("Error reading WebSocket message.")
			}
			break
		}
		// Feed clients only listen; inbound messages are ignored.
	}
}
