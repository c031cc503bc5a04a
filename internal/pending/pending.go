package pending

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flogvit/wikiportraits/internal/roster"
)

// Kind classifies what a pending entity will become in the graph.
type Kind string

// Known kinds.
const (
	KindOrganization Kind = "organization"
	KindPerformer    Kind = "performer"
)

// Status is the lifecycle state of a pending entity.
type Status string

// Lifecycle: pending -> creating -> created | failed. A created entity is
// promoted to its resolved form and removed from the pending set.
const (
	StatusPending  Status = "pending"
	StatusCreating Status = "creating"
	StatusCreated  Status = "created"
	StatusFailed   Status = "failed"
)

// Attrs is the free-form attribute bag supplied at manual entry.
type Attrs struct {
	Name        string         `json:"name"`
	LegalName   string         `json:"legal_name,omitempty"`
	Description string         `json:"description,omitempty"`
	Instruments []string       `json:"instruments,omitempty"`
	Nationality string         `json:"nationality,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	BirthDate   string         `json:"birth_date,omitempty"`
	Tenure      *roster.Tenure `json:"tenure,omitempty"`
	OrgID       string         `json:"org_id,omitempty"`
}

// Entity is a performer or organization that does not exist in the
// external graph yet, tracked locally until the publishing collaborator
// creates it upstream.
type Entity struct {
	LocalID   string    `json:"local_id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Attrs     Attrs     `json:"attrs"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrValidation indicates malformed pending-entity input. Surfaced to the
// caller synchronously; the entity is not created.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid pending entity: %s %s", e.Field, e.Reason)
}

// Manager tracks pending entities for the active session. Local ids are
// timestamp-based and unique within the session.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*Entity
	order   []string
	lastID  int64
	logger  *slog.Logger
}

// NewManager creates an empty pending entity manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		entries: make(map[string]*Entity),
		logger:  logger.With(slog.String("component", "pending")),
	}
}

// Add validates attrs and registers a new pending entity with a fresh
// local id and status pending.
func (m *Manager) Add(kind Kind, attrs Attrs) (*Entity, error) {
	if strings.TrimSpace(attrs.Name) == "" {
		return nil, &ErrValidation{Field: "name", Reason: "must not be empty"}
	}
	if kind == "" {
		kind = KindPerformer
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := &Entity{
		LocalID:   m.nextID(),
		Kind:      kind,
		Status:    StatusPending,
		Attrs:     attrs,
		CreatedAt: time.Now().UTC(),
	}
	m.entries[e.LocalID] = e
	m.order = append(m.order, e.LocalID)

	m.logger.Debug("pending entity added",
		slog.String("local_id", e.LocalID), slog.String("name", attrs.Name))

	copy := *e
	return &copy, nil
}

// Get returns a copy of the entity with the given local id.
func (m *Manager) Get(localID string) (*Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[localID]
	if !ok {
		return nil, false
	}
	copy := *e
	return &copy, true
}

// List returns copies of all pending entities in insertion order.
func (m *Manager) List() []Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entity, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.entries[id])
	}
	return out
}

// ListFor returns the pending entities whose parent-organization
// reference matches orgID, in insertion order.
func (m *Manager) ListFor(orgID string) []Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entity
	for _, id := range m.order {
		if m.entries[id].Attrs.OrgID == orgID {
			out = append(out, *m.entries[id])
		}
	}
	return out
}

// SetStatus transitions the entity's lifecycle status.
func (m *Manager) SetStatus(localID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[localID]
	if !ok {
		return fmt.Errorf("pending entity %s not found", localID)
	}
	e.Status = status
	return nil
}

// Remove deletes the entity and returns it, if present.
func (m *Manager) Remove(localID string) (*Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(localID)
}

func (m *Manager) removeLocked(localID string) (*Entity, bool) {
	e, ok := m.entries[localID]
	if !ok {
		return nil, false
	}
	delete(m.entries, localID)
	for i, id := range m.order {
		if id == localID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	copy := *e
	return &copy, true
}

// Restore replaces the manager's contents from a snapshot.
func (m *Manager) Restore(entries []Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entity, len(entries))
	m.order = m.order[:0]
	for i := range entries {
		e := entries[i]
		m.entries[e.LocalID] = &e
		m.order = append(m.order, e.LocalID)
	}
}

// Clear drops every pending entity belonging to orgID.
func (m *Manager) Clear(orgID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range append([]string(nil), m.order...) {
		if m.entries[id].Attrs.OrgID == orgID {
			m.removeLocked(id)
		}
	}
}

func (m *Manager) nextID() string {
	now := time.Now().UnixMilli()
	if now <= m.lastID {
		now = m.lastID + 1
	}
	m.lastID = now
	return fmt.Sprintf("local-%d", now)
}
