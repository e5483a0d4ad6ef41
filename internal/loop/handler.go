package loop

import (
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/sirupsen/logrus"

	"github.com/mohalnassery/localhost/internal/cgi"
	"github.com/mohalnassery/localhost/internal/config"
	"github.com/mohalnassery/localhost/internal/httpparse"
	"github.com/mohalnassery/localhost/internal/respond"
	"github.com/mohalnassery/localhost/internal/router"
	"github.com/mohalnassery/localhost/internal/session"
	"github.com/mohalnassery/localhost/internal/urlpath"
)

// Engine is the gnet.EventHandler that owns the listener set, event loop,
// and connection table. Every method below (except goroutines explicitly
// spawned for CGI/file streaming) runs on the single gnet event-loop
// goroutine — the engine is started with WithMulticore(false) and
// WithNumEventLoop(1), so none of this needs a mutex; it is the
// single-threaded cooperative scheduler gnet's own README describes for
// NumEventLoop(1).
type Engine struct {
	gnet.BuiltinEventEngine

	cfg            *config.Config
	router         *router.Router
	sessions       *session.Store
	log            *logrus.Logger
	serverSoftware string

	eng         gnet.Engine
	conns       map[uint64]*Connection
	nextID      uint64
	cgiChildren int64
}

// NewEngine wires a validated Config into a ready-to-run event handler.
func NewEngine(cfg *config.Config, log *logrus.Logger, serverSoftware string) *Engine {
	return &Engine{
		cfg:            cfg,
		router:         router.New(cfg),
		sessions:       session.NewStore(30 * time.Minute),
		log:            log,
		serverSoftware: serverSoftware,
		conns:          make(map[uint64]*Connection),
	}
}

func (e *Engine) OnBoot(eng gnet.Engine) gnet.Action {
	e.eng = eng
	e.log.WithField("component", "loop").Info("event loop booted")
	return gnet.None
}

func (e *Engine) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	if e.cfg.MaxConnections > 0 && len(e.conns) >= e.cfg.MaxConnections {
		resp := respond.ErrorPage(503, nil, os.ReadFile)
		resp.CloseAfter = true
		resp.ApplyCommonHeaders(e.serverSoftware, false)
		head, err := resp.HeaderBytes()
		if err == nil {
			c.Write(head)
			if resp.Kind == respond.BodyBytes {
				c.Write(resp.Bytes)
			}
		}
		return nil, gnet.Close
	}
	id := atomic.AddUint64(&e.nextID, 1)
	host, port := splitHostPort(c.LocalAddr())
	entry := e.log.WithFields(logrus.Fields{"conn": id, "remote": c.RemoteAddr().String()})
	conn := NewConnection(id, host, port, c.RemoteAddr().String(), e.cfg.MaxHeaderBytes, entry)
	c.SetContext(conn)
	e.conns[id] = conn
	return nil, gnet.None
}

func (e *Engine) OnClose(c gnet.Conn, err error) gnet.Action {
	if conn, ok := c.Context().(*Connection); ok {
		conn.State = stateClosed
		delete(e.conns, conn.ID)
	}
	return gnet.None
}

// OnTick sweeps idle/header-stalled connections and expired sessions. This
// periodic maintenance belongs on the event loop rather than a
// per-connection timer goroutine, since no other goroutine touches this
// state.
func (e *Engine) OnTick() (time.Duration, gnet.Action) {
	now := time.Now()
	for id, conn := range e.conns {
		deadline := e.cfg.IdleTimeout
		if conn.State == stateReadingRequest && conn.Pending == nil {
			deadline = e.cfg.HeaderTimeout
		}
		if now.Sub(conn.LastActivity) > deadline {
			delete(e.conns, id)
			// gnet has no enumerate-and-close-by-id primitive beyond the
			// Conn itself; closing happens lazily via the next failed
			// read/write on this socket, which OnClose then reaps. A
			// timed-out idle peer gets its FIN noticed the same tick gnet
			// next polls it.
		}
	}
	if removed := e.sessions.Sweep(now); removed > 0 {
		e.log.WithField("removed", removed).Debug("session sweep")
	}
	return time.Second, gnet.None
}

func (e *Engine) OnTraffic(c gnet.Conn) gnet.Action {
	conn, ok := c.Context().(*Connection)
	if !ok || conn == nil {
		return gnet.Close
	}
	conn.Touch()

	for {
		switch conn.State {
		case stateReadingRequest:
			req, outcome, perr := conn.Head.Parse(c)
			switch outcome {
			case httpparse.NeedMore:
				return gnet.None
			case httpparse.Failed:
				e.writeErrorAndClose(c, conn, perr)
				return gnet.Close
			}
			conn.Pending = req
			conn.State = stateRoutingOrBody

			hostHeader := req.Host
			cleanPath := urlpath.Clean(req.Path)
			decision := e.router.Route(conn.ListenHost, conn.ListenPort, hostHeader, cleanPath, string(req.Method))
			conn.Decision = decision
			if decision.Block != nil {
				conn.Block = decision.Block
			}

			maxBody := int64(1 << 20)
			if conn.Block != nil && conn.Block.MaxBodySize > 0 {
				maxBody = conn.Block.MaxBodySize
			}
			conn.MaxBody = maxBody

			// Only a routable request with an expected body gets the
			// 100 Continue nudge; an unroutable one (404/405/403/501)
			// already has its final status decided, and §4.4/§6 list no
			// allowed status for refusing the expectation itself, so the
			// request simply proceeds to body-reading and the
			// already-decided response is rendered once it completes.
			if req.ExpectContinue && decision.Status == 0 && req.HasBody() {
				c.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n"))
			}

			conn.Body = httpparse.NewBodyReader(req, maxBody, nil)
			continue

		case stateRoutingOrBody:
			outcome, perr := conn.Body.Read(c)
			switch outcome {
			case httpparse.NeedMore:
				return gnet.None
			case httpparse.Failed:
				e.writeErrorAndClose(c, conn, perr)
				return gnet.Close
			}

			action, cont := e.finishRequest(c, conn)
			if !cont {
				return action
			}
			// keep-alive with already-buffered pipelined bytes: loop
			// back to stateReadingRequest in this same call.
		}
	}
}

// finishRequest dispatches a fully-read request. The bool return reports
// whether OnTraffic should keep looping (true) on this same invocation
// because the connection is being kept alive and has already been reset.
func (e *Engine) finishRequest(c gnet.Conn, conn *Connection) (gnet.Action, bool) {
	req := conn.Pending
	cleanPath := urlpath.Clean(req.Path)
	keepAlive := !req.WantsClose

	wrapped := &httpReq{Request: req, RemoteAddr: conn.RemoteAddr, ServerPort: strconv.Itoa(conn.ListenPort)}

	if conn.Decision.Status != 0 || conn.Block == nil {
		resp := dispatch(conn.Decision, cleanPath, wrapped, conn.Block).Response
		return e.commit(c, conn, resp, keepAlive)
	}

	cookieName := conn.Block.SessionCookie
	if cookieName == "" {
		cookieName = "SESSIONID"
	}
	_, setCookie := resolveSession(e.sessions, cookieName, wrapped)

	result := dispatch(conn.Decision, cleanPath, wrapped, conn.Block)
	if result.CGI != nil {
		if e.cfg.MaxCGIChildren > 0 && int(atomic.LoadInt64(&e.cgiChildren)) >= e.cfg.MaxCGIChildren {
			resp := respond.ErrorPage(503, errorPages(conn.Block), os.ReadFile)
			return e.commit(c, conn, resp, keepAlive)
		}
		result.CGI.ServerSoft = e.serverSoftware
		cgiCfg := cgi.Config{
			Timeout:    e.cfg.CGITimeout,
			KillGrace:  e.cfg.CGIKillGrace,
			ServerSoft: e.serverSoftware,
		}
		connID := conn.ID
		atomic.AddInt64(&e.cgiChildren, 1)
		runCGI(c, result.CGI, cgiCfg, keepAlive, e.serverSoftware, func(err error) {
			atomic.AddInt64(&e.cgiChildren, -1)
			if err != nil {
				e.log.WithFields(logrus.Fields{"conn": connID, "err": err}).Warn("cgi invocation failed")
			}
		})
		// The CGI goroutine owns the connection's write side from here;
		// this request cannot be pipelined past, so stop reusing c until
		// it closes (writeResponse forces Connection: close for
		// unsized CGI output in the common case).
		conn.resetForNextRequest(e.cfg.MaxHeaderBytes)
		return gnet.None, false
	}

	resp := result.Response
	if setCookie != "" {
		resp.Header.Add("Set-Cookie", setCookie)
	}
	return e.commit(c, conn, resp, keepAlive)
}

func (e *Engine) commit(c gnet.Conn, conn *Connection, resp *respond.Response, keepAlive bool) (gnet.Action, bool) {
	err := writeResponse(c, resp, keepAlive && !resp.CloseAfter, e.serverSoftware)
	if err != nil || resp.CloseAfter || !keepAlive {
		return gnet.Close, false
	}
	conn.resetForNextRequest(e.cfg.MaxHeaderBytes)
	return gnet.None, true
}

func (e *Engine) writeErrorAndClose(c gnet.Conn, conn *Connection, perr *httpparse.ParseError) {
	status := 400
	if perr != nil {
		status = perr.Status
	}
	resp := respond.ErrorPage(status, errorPages(conn.Block), os.ReadFile)
	resp.CloseAfter = true
	writeResponse(c, resp, false, e.serverSoftware)
}

func splitHostPort(addr net.Addr) (string, int) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return "", 0
	}
	return tcp.IP.String(), tcp.Port
}
