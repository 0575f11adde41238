package reservation

import (
	"errors"
	"testing"
	"time"

	"github.com/kadirpekel/hexboard/internal/hexerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimUnclaimedSucceeds(t *testing.T) {
	m := New()
	_, err := m.Claim("/tmp/a.txt", "agent-1", "Agent One", "write")
	require.NoError(t, err)
}

func TestClaimByOtherAgentFails(t *testing.T) {
	m := New()
	_, err := m.Claim("/tmp/a.txt", "agent-1", "Agent One", "write")
	require.NoError(t, err)

	_, err = m.Claim("/tmp/a.txt", "agent-2", "Agent Two", "write")
	require.Error(t, err)
	assert.True(t, errors.Is(err, hexerr.ErrFileBusy))

	var fce *hexerr.FileClaimError
	require.True(t, errors.As(err, &fce))
	assert.Equal(t, "agent-1", fce.ClaimantID)
}

func TestReclaimBySameAgentRefreshesTimestamp(t *testing.T) {
	m := New()
	first, err := m.Claim("/tmp/a.txt", "agent-1", "Agent One", "read")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	second, err := m.Claim("/tmp/a.txt", "agent-1", "Agent One", "write")
	require.NoError(t, err)
	assert.True(t, second.ClaimedAt.After(first.ClaimedAt))
	assert.Equal(t, "write", second.Operation)
}

func TestReleaseByOtherAgentRefused(t *testing.T) {
	m := New()
	_, err := m.Claim("/tmp/a.txt", "agent-1", "Agent One", "write")
	require.NoError(t, err)

	err = m.Release("/tmp/a.txt", "agent-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, hexerr.ErrNotOwner))

	// The original claim must still be intact.
	r, held := m.Lookup("/tmp/a.txt")
	require.True(t, held)
	assert.Equal(t, "agent-1", r.AgentID)
}

func TestClaimThenReleaseRoundTrip(t *testing.T) {
	m := New()
	_, err := m.Claim("/tmp/a.txt", "agent-1", "Agent One", "write")
	require.NoError(t, err)

	require.NoError(t, m.Release("/tmp/a.txt", "agent-1"))

	_, held := m.Lookup("/tmp/a.txt")
	assert.False(t, held)
}

func TestExpiredClaimCanBeTaken(t *testing.T) {
	m := NewWithTimeout(10 * time.Millisecond)
	_, err := m.Claim("/tmp/a.txt", "agent-1", "Agent One", "write")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = m.Claim("/tmp/a.txt", "agent-2", "Agent Two", "write")
	assert.NoError(t, err)
}

func TestNormalizePathCollapsesSeparators(t *testing.T) {
	assert.Equal(t, "/tmp/a", NormalizePath("/tmp//a/"))
	assert.Equal(t, "/tmp/a", NormalizePath("/tmp/a"))
}

func TestReleaseUnheldPathIsNoop(t *testing.T) {
	m := New()
	assert.NoError(t, m.Release("/tmp/never-claimed.txt", "agent-1"))
}
