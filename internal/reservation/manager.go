// Package reservation implements the File Reservation Manager: the mutual-exclusion primitive over normalized filesystem paths
// that backs read/write tool dispatch in the agent actor.
package reservation

import (
	"path"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/hexerr"
	"github.com/kadirpekel/hexboard/internal/model"
)

// DefaultClaimTimeout is the age after which a reservation is treated as
// released.
const DefaultClaimTimeout = 2 * time.Minute

// Manager holds the path -> reservation map for one board run.
type Manager struct {
	mu      sync.Mutex
	claims  map[string]model.FileReservation
	timeout time.Duration
	now     func() time.Time
}

// New constructs a Manager using DefaultClaimTimeout.
func New() *Manager {
	return &Manager{
		claims:  make(map[string]model.FileReservation),
		timeout: DefaultClaimTimeout,
		now:     time.Now,
	}
}

// NewWithTimeout constructs a Manager with a custom claim timeout, for
// tests that need to exercise expiry without waiting two minutes.
func NewWithTimeout(timeout time.Duration) *Manager {
	m := New()
	m.timeout = timeout
	return m
}

// NormalizePath trims trailing separators and collapses repeated
// separators so two spellings of the same path resolve to one claim.
func NormalizePath(p string) string {
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if cleaned != "/" {
		cleaned = strings.TrimRight(cleaned, "/")
	}
	return cleaned
}

func (m *Manager) isExpired(r model.FileReservation) bool {
	return m.now().Sub(r.ClaimedAt) > m.timeout
}

// Claim attempts to take exclusive ownership of path for agentID. It
// succeeds when the path is unclaimed, the existing claim has expired, or
// the existing claim is already held by the same agent (in which case the
// timestamp and operation label are refreshed). Otherwise it fails with
// a *hexerr.FileClaimError identifying the current claimant and the age
// of their claim.
func (m *Manager) Claim(pathIn, agentID, agentName, op string) (model.FileReservation, error) {
	p := NormalizePath(pathIn)

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, held := m.claims[p]
	if held && !m.isExpired(existing) && existing.AgentID != agentID {
		age := m.now().Sub(existing.ClaimedAt)
		return model.FileReservation{}, hexerr.NewFileClaimError(
			"claim",
			"path is currently being modified by another agent",
			p, existing.AgentID, existing.AgentName, age.Seconds(),
			hexerr.ErrFileBusy,
		)
	}

	reservation := model.FileReservation{
		Path:      p,
		AgentID:   agentID,
		AgentName: agentName,
		Operation: op,
		ClaimedAt: m.now(),
	}
	m.claims[p] = reservation
	return reservation, nil
}

// Release drops the claim on path if it is unheld or held by agentID.
// Releasing another agent's active claim is refused.
func (m *Manager) Release(pathIn, agentID string) error {
	p := NormalizePath(pathIn)

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, held := m.claims[p]
	if !held {
		return nil
	}
	if existing.AgentID != agentID && !m.isExpired(existing) {
		return hexerr.NewFileClaimError(
			"release",
			"cannot release a claim held by another agent",
			p, existing.AgentID, existing.AgentName, m.now().Sub(existing.ClaimedAt).Seconds(),
			hexerr.ErrNotOwner,
		)
	}
	delete(m.claims, p)
	return nil
}

// ClearAll drops every claim, used at board start/stop.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = make(map[string]model.FileReservation)
}

// Lookup returns the current reservation for path, if any and unexpired.
func (m *Manager) Lookup(pathIn string) (model.FileReservation, bool) {
	p := NormalizePath(pathIn)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.claims[p]
	if !ok || m.isExpired(r) {
		return model.FileReservation{}, false
	}
	return r, true
}
