package gateway

import (
	"sync"
	"time"

	pkgredis "github.com/vidyaverse/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	RoomAdmin       = "admin"
	RoomPublic      = "public"
	namespaceAdmin  = "/admin"
	namespaceWeb    = "/web"
	redisChanAdmin  = "vv:gateway:admin"
	redisChanPublic = "vv:gateway:public"

	redisKeyMaxOnlineCount      = "vv:max_online_count"
	redisKeyMaxOnlineCountTotal = "vv:max_online_count:total"

	nativeLogSnapshotChunkSize = 32 * 1024

	maxSessionIDLength = 128

	// readingPresenceTTL is how long a presence entry survives without a
	// heartbeat before snapshots drop it.
	readingPresenceTTL = 5 * time.Minute
)

// Events pushed to connected clients.
const (
	eventVisitorOnline        = "VISITOR_ONLINE"
	eventVisitorOffline       = "VISITOR_OFFLINE"
	eventReadingLeavePresence = "READING_LEAVE_PRESENCE"
)

// Inbound message types the web namespace understands.
const (
	messageJoin      = "join"
	messageLeave     = "leave"
	messageUpdateSID = "updateSid"
)

// Message is the envelope used by hub broadcasts and Redis fan-out. Origin
// carries the sending instance's id so fan-out subscribers can skip their own
// messages.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Code    *int        `json:"code,omitempty"`
	Room    string      `json:"room,omitempty"`
	Origin  string      `json:"origin,omitempty"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Code *int        `json:"code,omitempty"`
}

type clientMeta struct {
	sid       string
	room      string
	sessionID string
}

type adminLogSubscription struct {
	streamID int
	stopCh   chan struct{}
}

// ReadingPresence is one user's live reading state, fed by session updates.
type ReadingPresence struct {
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id"`
	Progress  float64   `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Hub manages socket.io namespaces, presence, and cluster fan-out.
type Hub struct {
	mu sync.RWMutex

	sidRoom   map[string]string
	roomCount map[string]int

	// presenceMu guards socket-side presence: which client sits in which
	// book rooms, and the session identity each client reported.
	presenceMu sync.Mutex
	sidRooms   map[string]map[string]struct{}
	sidSession map[string]string

	readingMu sync.Mutex
	reading   map[string]ReadingPresence

	logSubMu sync.Mutex
	logSubs  map[string]adminLogSubscription

	broadcast  chan Message
	register   chan clientMeta
	unregister chan clientMeta

	instanceID          string
	rc                  *pkgredis.Client
	logger              *zap.Logger
	sio                 *socketio.Server
	adminTokenValidator func(string) bool
}
