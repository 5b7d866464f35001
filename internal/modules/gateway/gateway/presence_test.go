package gateway

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(nil, zap.NewNop(), nil)
}

func TestNormalizeSessionID(t *testing.T) {
	assert.Equal(t, "abc", normalizeSessionID("  abc  ", "fallback"))
	assert.Equal(t, "fallback", normalizeSessionID("", "fallback"))
	assert.Equal(t, "fallback", normalizeSessionID("   ", "fallback"))
	assert.Equal(t, "", normalizeSessionID("", ""))

	long := strings.Repeat("x", maxSessionIDLength+40)
	assert.Equal(t, strings.Repeat("x", maxSessionIDLength), normalizeSessionID(long, "fallback"))
}

func TestTouchReadingPresenceIgnoresBlankIDs(t *testing.T) {
	h := newTestHub()

	h.TouchReadingPresence("", "book-1", 10)
	h.TouchReadingPresence("user-1", "   ", 10)
	assert.Empty(t, h.ReadingPresenceSnapshot())

	h.TouchReadingPresence("  user-1  ", "  book-1  ", 12.5)
	snapshot := h.ReadingPresenceSnapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "user-1", snapshot[0].UserID)
	assert.Equal(t, "book-1", snapshot[0].BookID)
	assert.Equal(t, 12.5, snapshot[0].Progress)
	assert.False(t, snapshot[0].UpdatedAt.IsZero())
}

func TestTouchReadingPresenceKeepsOneEntryPerUser(t *testing.T) {
	h := newTestHub()

	h.TouchReadingPresence("user-1", "book-1", 10)
	h.TouchReadingPresence("user-1", "book-2", 55)

	snapshot := h.ReadingPresenceSnapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "book-2", snapshot[0].BookID)
	assert.Equal(t, float64(55), snapshot[0].Progress)
}

func TestReadingPresenceSnapshotOrdersNewestFirst(t *testing.T) {
	h := newTestHub()
	now := time.Now().UTC()

	h.reading["older"] = ReadingPresence{UserID: "older", BookID: "b1", UpdatedAt: now.Add(-2 * time.Minute)}
	h.reading["newest"] = ReadingPresence{UserID: "newest", BookID: "b2", UpdatedAt: now}
	h.reading["middle"] = ReadingPresence{UserID: "middle", BookID: "b3", UpdatedAt: now.Add(-time.Minute)}

	snapshot := h.ReadingPresenceSnapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "newest", snapshot[0].UserID)
	assert.Equal(t, "middle", snapshot[1].UserID)
	assert.Equal(t, "older", snapshot[2].UserID)
}

func TestReadingPresenceSnapshotBreaksTiesByUserID(t *testing.T) {
	h := newTestHub()
	at := time.Now().UTC()

	h.reading["zeta"] = ReadingPresence{UserID: "zeta", BookID: "b", UpdatedAt: at}
	h.reading["alpha"] = ReadingPresence{UserID: "alpha", BookID: "b", UpdatedAt: at}

	snapshot := h.ReadingPresenceSnapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "alpha", snapshot[0].UserID)
	assert.Equal(t, "zeta", snapshot[1].UserID)
}

func TestReadingPresenceSnapshotDropsStaleEntries(t *testing.T) {
	h := newTestHub()

	h.TouchReadingPresence("live", "book-1", 40)
	h.reading["stale"] = ReadingPresence{
		UserID:    "stale",
		BookID:    "book-2",
		UpdatedAt: time.Now().UTC().Add(-readingPresenceTTL - time.Minute),
	}

	snapshot := h.ReadingPresenceSnapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "live", snapshot[0].UserID)

	// Stale entries are evicted, not just filtered from the reply.
	h.readingMu.Lock()
	_, stillThere := h.reading["stale"]
	h.readingMu.Unlock()
	assert.False(t, stillThere)
}

func TestPublicRoomMembership(t *testing.T) {
	h := newTestHub()

	assert.False(t, h.leavePublicRoom("sid-1", "book:1"))

	h.joinPublicRoom("sid-1", "book:1")
	h.joinPublicRoom("sid-1", "book:2")
	h.joinPublicRoom("sid-1", "book:1")
	assert.Equal(t, []string{"book:1", "book:2"}, h.joinedPublicRoomsOfSID("sid-1"))

	assert.True(t, h.leavePublicRoom("sid-1", "book:1"))
	assert.False(t, h.leavePublicRoom("sid-1", "book:1"))
	assert.Equal(t, []string{"book:2"}, h.joinedPublicRoomsOfSID("sid-1"))

	assert.True(t, h.leavePublicRoom("sid-1", "book:2"))
	assert.Nil(t, h.joinedPublicRoomsOfSID("sid-1"))

	// Blank ids never create state.
	h.joinPublicRoom("", "book:1")
	h.joinPublicRoom("sid-2", "")
	assert.Nil(t, h.joinedPublicRoomsOfSID(""))
	assert.Nil(t, h.joinedPublicRoomsOfSID("sid-2"))
}

func TestUpdateClientSession(t *testing.T) {
	h := newTestHub()

	h.rememberClientSession("sid-1", "session-a")
	assert.Equal(t, "session-a", h.identityOfSID("sid-1", "sid-1"))

	_, changed, _ := h.updateClientSession("sid-1", "session-a")
	assert.False(t, changed)

	next, changed, _ := h.updateClientSession("sid-1", "  session-b  ")
	assert.True(t, changed)
	assert.Equal(t, "session-b", next)
	assert.Equal(t, "session-b", h.identityOfSID("sid-1", "sid-1"))

	// A blank update falls back to the socket id.
	next, changed, _ = h.updateClientSession("sid-1", "   ")
	assert.True(t, changed)
	assert.Equal(t, "sid-1", next)

	h.forgetClientPresence("sid-1")
	assert.Equal(t, "sid-1", h.identityOfSID("sid-1", "sid-1"))
}
