package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flogvit/wikiportraits/internal/event"
	"github.com/flogvit/wikiportraits/internal/pending"
	"github.com/flogvit/wikiportraits/internal/roster"
	"github.com/flogvit/wikiportraits/internal/snapshot"
)

// State is the reconciliation state of the active organization.
type State string

// States of the per-org lifecycle. Selecting a new organization discards
// the previous working state entirely.
const (
	StateEmpty     State = "empty"
	StateResolving State = "resolving"
	StateResolved  State = "resolved"
)

// ErrInvalidSelection indicates a malformed request against the session.
type ErrInvalidSelection struct {
	Reason string
}

func (e *ErrInvalidSelection) Error() string {
	return fmt.Sprintf("invalid selection: %s", e.Reason)
}

// ErrPendingNotFound indicates the referenced pending entity does not
// exist in the current session.
type ErrPendingNotFound struct {
	LocalID string
}

func (e *ErrPendingNotFound) Error() string {
	return fmt.Sprintf("pending entity %s not found", e.LocalID)
}

// ErrStaleSelection indicates the selection was superseded by a newer one
// while its roster was still resolving.
type ErrStaleSelection struct {
	OrgID string
}

func (e *ErrStaleSelection) Error() string {
	return fmt.Sprintf("selection of %s superseded", e.OrgID)
}

// Resolver produces a roster for an organization.
type Resolver interface {
	Resolve(ctx context.Context, orgID string) roster.Resolution
}

// View is a read-only snapshot of the session handed to callers.
type View struct {
	OrgID      string             `json:"org_id"`
	State      State              `json:"state"`
	Performers []roster.Performer `json:"performers"`
	Partial    bool               `json:"partial,omitempty"`
	Restored   bool               `json:"restored,omitempty"`
}

// snapshotData is the persisted form of a session, keyed by org id.
type snapshotData struct {
	OrgID      string             `json:"org_id"`
	Performers []roster.Performer `json:"performers"`
	Pending    []pending.Entity   `json:"pending"`
	SavedAt    time.Time          `json:"saved_at"`
}

// Manager is the reconciliation cache. It owns the active organization,
// its working roster, and the pending entities attached to it. All
// mutations are serialized; readers never observe a promote mid-flight.
type Manager struct {
	resolver Resolver
	store    snapshot.Store
	pending  *pending.Manager
	bus      *event.Bus
	logger   *slog.Logger

	mu         sync.Mutex
	seq        uint64
	orgID      string
	state      State
	performers []roster.Performer
	partial    bool
}

// NewManager creates a session manager with no organization selected.
func NewManager(resolver Resolver, store snapshot.Store, pend *pending.Manager, bus *event.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		resolver: resolver,
		store:    store,
		pending:  pend,
		bus:      bus,
		logger:   logger.With(slog.String("component", "session")),
		state:    StateEmpty,
	}
}

// SelectOrg switches the session to orgID. A previously visited org is
// restored from its snapshot without a network call unless force is set;
// otherwise the roster is resolved from the graph. Selecting the already
// active org without force is a no-op read.
func (m *Manager) SelectOrg(ctx context.Context, orgID string, force bool) (View, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return View{}, &ErrInvalidSelection{Reason: "org id must not be empty"}
	}

	m.mu.Lock()

	if orgID == m.orgID && m.state == StateResolved && !force {
		v := m.viewLocked()
		m.mu.Unlock()
		return v, nil
	}

	// Leaving an org: persist its working state, then drop it. A roster
	// still resolving has no known state worth keeping; persisting it
	// would overwrite the org's snapshot with an empty roster.
	if m.orgID != "" && m.orgID != orgID {
		if m.state == StateResolved {
			m.persistLocked(ctx)
		}
		m.pending.Clear(m.orgID)
	}

	m.seq++
	seq := m.seq
	m.orgID = orgID
	m.performers = nil
	m.partial = false
	m.state = StateEmpty

	if !force {
		if snap, ok := m.loadSnapshot(ctx, orgID); ok {
			m.performers = snap.Performers
			m.pending.Restore(snap.Pending)
			m.state = StateResolved
			v := m.viewLocked()
			v.Restored = true
			m.mu.Unlock()
			m.publish(event.RosterRestored, map[string]any{
				"org": orgID, "count": len(v.Performers),
			})
			return v, nil
		}
	}

	m.state = StateResolving
	m.mu.Unlock()
	m.publish(event.OrgSelected, map[string]any{"org": orgID, "force": force})

	res := m.resolver.Resolve(ctx, orgID)

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return View{}, &ErrStaleSelection{OrgID: orgID}
	}
	m.performers = res.Performers
	m.partial = res.Partial
	m.state = StateResolved
	m.persistLocked(ctx)
	v := m.viewLocked()
	m.mu.Unlock()

	m.publish(event.RosterResolved, map[string]any{
		"org": orgID, "count": len(v.Performers), "partial": res.Partial,
	})
	return v, nil
}

// Current returns the active org id and state.
func (m *Manager) Current() (string, State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orgID, m.state
}

// Roster returns the merged working roster: resolved performers plus the
// projections of pending entities attached to the active org.
func (m *Manager) Roster() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// RosterIDs returns the external ids present in the working roster, for
// search exclusion.
func (m *Manager) RosterIDs() map[string]bool {
	v := m.Roster()
	ids := make(map[string]bool, len(v.Performers))
	for _, p := range v.Performers {
		if p.ID != "" {
			ids[p.ID] = true
		}
	}
	return ids
}

// AddPending registers a new locally-created entity. Performer entries
// with no explicit parent are attached to the active org.
func (m *Manager) AddPending(ctx context.Context, kind pending.Kind, attrs pending.Attrs) (*pending.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attrs.OrgID == "" && kind != pending.KindOrganization {
		attrs.OrgID = m.orgID
	}
	e, err := m.pending.Add(kind, attrs)
	if err != nil {
		return nil, err
	}
	m.persistLocked(ctx)
	m.publish(event.PendingCreated, map[string]any{
		"local_id": e.LocalID, "name": e.Attrs.Name,
	})
	return e, nil
}

// Pending returns all pending entities in the session.
func (m *Manager) Pending() []pending.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending.List()
}

// RemovePending deletes a pending entity.
func (m *Manager) RemovePending(ctx context.Context, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending.Remove(localID); !ok {
		return &ErrPendingNotFound{LocalID: localID}
	}
	m.persistLocked(ctx)
	return nil
}

// Promote replaces a pending entity with its resolved form in a single
// transition: the pending entry is removed and the resolved performer is
// merged into the roster under one lock. Readers see either the pending
// projection or the resolved entry, never both and never neither.
func (m *Manager) Promote(ctx context.Context, orgID, localID string, resolved roster.Performer) (View, error) {
	if resolved.ID == "" {
		return View{}, &ErrInvalidSelection{Reason: "resolved entity must carry an external id"}
	}

	m.mu.Lock()

	if orgID != m.orgID {
		m.mu.Unlock()
		return View{}, &ErrInvalidSelection{Reason: fmt.Sprintf("org %s is not selected", orgID)}
	}
	e, ok := m.pending.Remove(localID)
	if !ok {
		m.mu.Unlock()
		return View{}, &ErrPendingNotFound{LocalID: localID}
	}

	resolved.LocalID = ""
	resolved.Provenance = roster.ProvenanceResolved
	m.performers = roster.Merge(m.performers, []roster.Performer{resolved})
	m.persistLocked(ctx)
	v := m.viewLocked()
	m.mu.Unlock()

	m.publish(event.PendingPromoted, map[string]any{
		"local_id": localID, "id": resolved.ID, "name": e.Attrs.Name,
	})
	return v, nil
}

func (m *Manager) viewLocked() View {
	v := View{
		OrgID:   m.orgID,
		State:   m.state,
		Partial: m.partial,
	}
	var projected []roster.Performer
	for _, e := range m.pending.ListFor(m.orgID) {
		projected = append(projected, e.Performer())
	}
	v.Performers = roster.Merge(m.performers, projected)
	return v
}

// persistLocked writes the working state to the snapshot store. Failures
// degrade to a warning; the in-memory session remains authoritative.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.orgID == "" {
		return
	}
	snap := snapshotData{
		OrgID:      m.orgID,
		Performers: m.performers,
		Pending:    m.pending.ListFor(m.orgID),
		SavedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		m.logger.Warn("marshaling snapshot", slog.String("org", m.orgID), slog.Any("error", err))
		return
	}
	if err := m.store.Set(ctx, snapshotKey(m.orgID), data); err != nil {
		m.logger.Warn("persisting snapshot", slog.String("org", m.orgID), slog.Any("error", err))
	}
}

func (m *Manager) loadSnapshot(ctx context.Context, orgID string) (*snapshotData, bool) {
	data, ok, err := m.store.Get(ctx, snapshotKey(orgID))
	if err != nil {
		m.logger.Warn("loading snapshot", slog.String("org", orgID), slog.Any("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var snap snapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		m.logger.Warn("decoding snapshot", slog.String("org", orgID), slog.Any("error", err))
		return nil, false
	}
	return &snap, true
}

func (m *Manager) publish(t event.Type, data map[string]any) {
	if m.bus != nil {
		m.bus.Publish(event.Event{Type: t, Data: data})
	}
}

func snapshotKey(orgID string) string {
	return "org:" + orgID
}
