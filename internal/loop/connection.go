// Package loop implements the listener set, event loop, and connection
// manager as a single github.com/panjf2000/gnet/v2 engine.
//
// gnet is a single-goroutine, readiness-driven reactor: running it with
// WithMulticore(false) and WithNumEventLoop(1) gives a strictly
// single-threaded, cooperative scheduling model without hand-rolling an
// epoll wrapper. This package's state machine generalizes the usual
// goroutine-per-connection, blocking-on-deadlines read/serve loop from
// "blocking read behind a bufio.Reader" to "advance only what is already
// buffered, return control to the reactor otherwise."
package loop

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mohalnassery/localhost/internal/config"
	"github.com/mohalnassery/localhost/internal/httpparse"
	"github.com/mohalnassery/localhost/internal/router"
)

// state is the per-connection state machine.
type state int

const (
	stateReadingRequest state = iota
	stateRoutingOrBody
	stateWritingResponse
	stateClosed
)

// Connection is the per-connection bookkeeping record, stashed on each
// gnet.Conn via SetContext/Context.
type Connection struct {
	ID         uint64
	ListenHost string
	ListenPort int
	RemoteAddr string

	State state

	LastActivity  time.Time
	HeaderDead    time.Time
	WriteDead     time.Time
	BytesRead     int64
	BytesWritten  int64
	CloseAfter    bool

	Head     *httpparse.HeadParser
	Pending  *httpparse.Request
	Body     *httpparse.BodyReader
	MaxBody  int64
	Block    *config.ServerBlock
	Decision router.Decision

	CGIActive  bool
	CGIDone    chan struct{}

	Log *logrus.Entry
}

// NewConnection seeds a fresh per-connection record on accept.
func NewConnection(id uint64, listenHost string, listenPort int, remoteAddr string, maxHeaderBytes int, log *logrus.Entry) *Connection {
	now := time.Now()
	return &Connection{
		ID:           id,
		ListenHost:   listenHost,
		ListenPort:   listenPort,
		RemoteAddr:   remoteAddr,
		State:        stateReadingRequest,
		LastActivity: now,
		Head:         httpparse.NewHeadParser(maxHeaderBytes),
		Log:          log,
	}
}

// Touch records read/write activity, resetting the idle-timeout clock.
func (c *Connection) Touch() { c.LastActivity = time.Now() }

// resetForNextRequest returns the connection to ReadingRequest after a
// keep-alive exchange fully drains.
func (c *Connection) resetForNextRequest(maxHeaderBytes int) {
	c.State = stateReadingRequest
	c.Pending = nil
	c.Body = nil
	c.Block = nil
	c.Decision = router.Decision{}
	c.Head = httpparse.NewHeadParser(maxHeaderBytes)
}
