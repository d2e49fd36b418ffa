// Package notification is the claim-event feed. The registry and the
// reimbursement engine publish an event for every committed lifecycle step;
// auditors read them back over HTTP or subscribe to a live channel. Events of
// one claim are stored in publish order; no ordering holds across claims.
package notification

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// EventType identifies a lifecycle notification.
type EventType string

const (
	ClaimCreated       EventType = "claim.created"
	HospitalSubmitted  EventType = "claim.hospital_submitted"
	PatientConfirmed   EventType = "claim.patient_confirmed"
	PharmacyConfirmed  EventType = "claim.pharmacy_confirmed"
	ClaimApproved      EventType = "claim.approved"
	PaymentSent        EventType = "payment.sent"
	HospitalRegistered EventType = "hospital.registered"
)

// Event is a single lifecycle notification.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      EventType         `json:"type"`
	ClaimID   *uuid.UUID        `json:"claim_id,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Amount    *int64            `json:"amount,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// DefaultCapacity bounds the in-memory event store; the oldest events are
// dropped first.
const DefaultCapacity = 10000

// Hub stores published events and fans them out to subscribers.
type Hub struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	subs     map[uuid.UUID]chan Event
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		capacity: capacity,
		subs:     make(map[uuid.UUID]chan Event),
	}
}

// Publish appends the event to the store and delivers it to subscribers.
// Slow subscribers are skipped rather than blocking the publisher.
func (h *Hub) Publish(_ context.Context, e Event) Event {
	e.ID = uuid.New()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	h.mu.Lock()
	h.events = append(h.events, e)
	if len(h.events) > h.capacity {
		h.events = h.events[len(h.events)-h.capacity:]
	}
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
	h.mu.Unlock()

	return e
}

// Subscribe registers a live event channel. Cancel releases it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	id := uuid.New()
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// List returns stored events, optionally filtered by claim and type, oldest
// first.
func (h *Hub) List(claimID *uuid.UUID, eventType EventType, limit, offset int) ([]Event, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var filtered []Event
	for _, e := range h.events {
		if claimID != nil && (e.ClaimID == nil || *e.ClaimID != *claimID) {
			continue
		}
		if eventType != "" && e.Type != eventType {
			continue
		}
		filtered = append(filtered, e)
	}

	total := len(filtered)
	if offset >= total {
		return []Event{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return filtered[offset:end], total
}

// Handler exposes the event feed over HTTP.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/events", h.ListEvents)
}

func (h *Handler) ListEvents(c echo.Context) error {
	var claimID *uuid.UUID
	if raw := c.QueryParam("claim_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid claim_id")
		}
		claimID = &id
	}

	limit, offset := 100, 0
	_ = echo.QueryParamsBinder(c).Int("limit", &limit).Int("offset", &offset).BindError()

	events, total := h.hub.List(claimID, EventType(c.QueryParam("type")), limit, offset)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  events,
		"total": total,
	})
}
