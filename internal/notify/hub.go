package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nutrilog/nutrilog-api/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeTimeout = 10 * time.Second

// event is the envelope sent over the wire.
type event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// mealUpdatedPayload accompanies "meal_updated" events.
type mealUpdatedPayload struct {
	Meal              *domain.Meal `json:"meal"`
	ReplacedPendingID int64        `json:"replaced_pending_id,omitempty"`
}

// reportReadyPayload accompanies "report_ready" events.
type reportReadyPayload struct {
	ReportID int64  `json:"report_id"`
	Name     string `json:"name"`
}

// documentReadyPayload accompanies "document_ready" events.
type documentReadyPayload struct {
	JobID    int64               `json:"job_id"`
	Format   domain.ExportFormat `json:"format"`
	FilePath string              `json:"file_path"`
}

// client is one websocket connection owned by a single user. Writes are
// serialized through mu because gorilla connections allow one writer at a
// time.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(e event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(e)
}

// Hub is a websocket Notifier keeping a per-owner registry of connections.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}
}

var _ Notifier = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[int64]map[*client]struct{}),
	}
}

// Subscribe upgrades the request to a websocket and registers it for the
// owner. It blocks until the peer disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, ownerID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.Int64("owner_id", ownerID),
			slog.String("error", err.Error()))
		return
	}

	c := &client{id: uuid.New().String(), conn: conn}
	h.register(ownerID, c)
	h.logger.Debug("websocket client connected",
		slog.Int64("owner_id", ownerID),
		slog.String("client_id", c.id))

	defer func() {
		h.unregister(ownerID, c)
		_ = conn.Close()
		h.logger.Debug("websocket client disconnected",
			slog.Int64("owner_id", ownerID),
			slog.String("client_id", c.id))
	}()

	// Drain the read side so pings and close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(ownerID int64, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[ownerID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[ownerID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(ownerID int64, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[ownerID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, ownerID)
	}
}

// MealUpdated implements Notifier.
func (h *Hub) MealUpdated(ctx context.Context, ownerID int64, meal *domain.Meal, replacedPendingID int64) {
	h.publish(ctx, ownerID, event{
		Type:    "meal_updated",
		Payload: mealUpdatedPayload{Meal: meal, ReplacedPendingID: replacedPendingID},
	})
}

// ReportReady implements Notifier.
func (h *Hub) ReportReady(ctx context.Context, ownerID int64, report *domain.Report) {
	h.publish(ctx, ownerID, event{
		Type:    "report_ready",
		Payload: reportReadyPayload{ReportID: report.ID, Name: report.Name},
	})
}

// DocumentReady implements Notifier.
func (h *Hub) DocumentReady(ctx context.Context, ownerID int64, job *domain.ExportJob, filePath string) {
	h.publish(ctx, ownerID, event{
		Type:    "document_ready",
		Payload: documentReadyPayload{JobID: job.ID, Format: job.Format, FilePath: filePath},
	})
}

func (h *Hub) publish(_ context.Context, ownerID int64, e event) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[ownerID]))
	for c := range h.clients[ownerID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(e); err != nil {
			h.logger.Warn("failed to deliver event",
				slog.Int64("owner_id", ownerID),
				slog.String("client_id", c.id),
				slog.String("event_type", e.Type),
				slog.String("error", err.Error()))
		}
	}
}
