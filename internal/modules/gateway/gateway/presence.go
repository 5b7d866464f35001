package gateway

import (
	"sort"
	"strings"
	"time"
)

// normalizeSessionID trims and bounds a client-supplied session identity,
// falling back to the socket id when nothing usable remains.
func normalizeSessionID(raw, fallback string) string {
	sid := strings.TrimSpace(raw)
	if sid == "" {
		return fallback
	}
	if len(sid) > maxSessionIDLength {
		sid = sid[:maxSessionIDLength]
	}
	return sid
}

func (h *Hub) joinPublicRoom(sid, room string) {
	if sid == "" || room == "" {
		return
	}

	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	rooms, ok := h.sidRooms[sid]
	if !ok {
		rooms = make(map[string]struct{})
		h.sidRooms[sid] = rooms
	}
	rooms[room] = struct{}{}
}

// leavePublicRoom reports whether the client was actually in the room, so
// callers only broadcast a leave event for real departures.
func (h *Hub) leavePublicRoom(sid, room string) bool {
	if sid == "" || room == "" {
		return false
	}

	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	rooms, ok := h.sidRooms[sid]
	if !ok {
		return false
	}
	if _, in := rooms[room]; !in {
		return false
	}
	delete(rooms, room)
	if len(rooms) == 0 {
		delete(h.sidRooms, sid)
	}
	return true
}

func (h *Hub) joinedPublicRoomsOfSID(sid string) []string {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	rooms := h.sidRooms[sid]
	if len(rooms) == 0 {
		return nil
	}
	out := make([]string, 0, len(rooms))
	for room := range rooms {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

func (h *Hub) identityOfSID(sid, fallback string) string {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	if session, ok := h.sidSession[sid]; ok && session != "" {
		return session
	}
	return fallback
}

// updateClientSession swaps the session identity of a connected client. It
// returns the effective session id, whether anything changed, and the current
// public online count for the re-announce broadcast.
func (h *Hub) updateClientSession(sid, next string) (string, bool, int) {
	next = normalizeSessionID(next, sid)

	h.presenceMu.Lock()
	current := h.sidSession[sid]
	if current == next {
		h.presenceMu.Unlock()
		return current, false, 0
	}
	h.sidSession[sid] = next
	h.presenceMu.Unlock()

	h.mu.RLock()
	currentOnline := h.roomCount[RoomPublic]
	h.mu.RUnlock()

	return next, true, currentOnline
}

func (h *Hub) rememberClientSession(sid, sessionID string) {
	if sid == "" || sessionID == "" {
		return
	}

	h.presenceMu.Lock()
	h.sidSession[sid] = sessionID
	h.presenceMu.Unlock()
}

func (h *Hub) forgetClientPresence(sid string) {
	if sid == "" {
		return
	}

	h.presenceMu.Lock()
	delete(h.sidSession, sid)
	delete(h.sidRooms, sid)
	h.presenceMu.Unlock()
}

// TouchReadingPresence records a reading heartbeat for a user. Session starts
// and progress updates both land here.
func (h *Hub) TouchReadingPresence(userID, bookID string, progress float64) {
	userID = strings.TrimSpace(userID)
	bookID = strings.TrimSpace(bookID)
	if userID == "" || bookID == "" {
		return
	}

	h.readingMu.Lock()
	h.reading[userID] = ReadingPresence{
		UserID:    userID,
		BookID:    bookID,
		Progress:  progress,
		UpdatedAt: time.Now().UTC(),
	}
	h.readingMu.Unlock()
}

// ReadingPresenceSnapshot returns who is currently reading what, newest
// heartbeat first. Entries without a heartbeat inside the TTL are dropped.
func (h *Hub) ReadingPresenceSnapshot() []ReadingPresence {
	cutoff := time.Now().UTC().Add(-readingPresenceTTL)

	h.readingMu.Lock()
	out := make([]ReadingPresence, 0, len(h.reading))
	for userID, entry := range h.reading {
		if entry.UpdatedAt.Before(cutoff) {
			delete(h.reading, userID)
			continue
		}
		out = append(out, entry)
	}
	h.readingMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
