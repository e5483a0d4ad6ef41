package loop

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/panjf2000/gnet/v2"

	"github.com/mohalnassery/localhost/internal/cgi"
	"github.com/mohalnassery/localhost/internal/hdr"
	"github.com/mohalnassery/localhost/internal/respond"
)

// runCGI executes d in its own goroutine (cgi.Run blocks until the child's
// response headers are found, an exec failure occurs, or the deadline
// fires — never safe to call from the reactor goroutine) and writes the
// resulting response onto c once ready. keepAlive/serverSoftware are
// snapshotted by the caller before spawning since they describe the
// connection as of dispatch time, not whatever it has become by the time
// the child answers.
func runCGI(c gnet.Conn, d *cgiDispatch, cfg cgi.Config, keepAlive bool, serverSoftware string, onDone func(err error)) {
	go func() {
		req := &cgi.Request{
			Method:      d.Method,
			QueryString: d.QueryString,
			PathInfo:    d.PathInfo,
			ScriptName:  d.ScriptName,
			ContentType: d.ContentType,
			HasBody:     d.HasBody,
			ContentLen:  d.ContentLen,
			Header:      hdr.Header(d.Header),
			ServerName:  d.ServerName,
			ServerPort:  d.ServerPort,
			RemoteAddr:  d.RemoteAddr,
			Body:        d.Body,
		}
		cfg.ScriptPath = d.ScriptPath
		cfg.Interpreter = d.Interpreter

		out := cgi.Run(context.Background(), req, cfg)
		if out.Err != nil {
			status := 502
			if out.TimedOut {
				status = 504
			}
			resp := respond.ErrorPage(status, d.ErrorPages, os.ReadFile)
			writeResponseAsync(c, resp, false, serverSoftware)
			onDone(out.Err)
			return
		}

		resp := respond.New(out.Status, out.StatusText)
		resp.Header = out.Header
		resp.Kind = respond.BodyStream
		resp.Stream = &cgiStreamReader{leftover: out.Body, ch: out.Stream}
		if cl := out.Header.Get("Content-Length"); cl != "" {
			if n, perr := strconv.ParseInt(cl, 10, 64); perr == nil {
				resp.StreamHasSize = true
				resp.StreamSize = n
			}
		}
		err := writeResponseAsync(c, resp, keepAlive, serverSoftware)
		onDone(err)
	}()
}

// cgiStreamReader adapts a CGI invocation's already-buffered leftover bytes
// plus its pumpRemaining channel into a single io.ReadCloser the connection
// writer can drain chunk by chunk.
type cgiStreamReader struct {
	leftover []byte
	ch       <-chan []byte
}

func (r *cgiStreamReader) Read(p []byte) (int, error) {
	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	chunk, ok := <-r.ch
	if !ok {
		return 0, io.EOF
	}
	n := copy(p, chunk)
	if n < len(chunk) {
		r.leftover = chunk[n:]
	}
	return n, nil
}

func (r *cgiStreamReader) Close() error { return nil }
