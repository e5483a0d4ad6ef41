package loop

import (
	"errors"
	"io"
	"os"

	"github.com/panjf2000/gnet/v2"

	"github.com/mohalnassery/localhost/internal/respond"
)

var errAsyncWriteFailed = errors.New("loop: async write failed")

// writeResponse frames resp onto c. Bounded bodies (BodyNone/BodyBytes) are
// written synchronously with gnet's buffered Write, since they never block
// the reactor for more than a memcpy into gnet's outbound ring buffer.
// BodyFile/BodyStream bodies are too large to want resident in
// memory (a multi-gigabyte static file, an open-ended CGI stream), so those
// are handed off to a feeder goroutine pacing itself against AsyncWrite's
// completion callback, the dedicated-goroutine escape hatch for exactly
// this case.
func writeResponse(c gnet.Conn, resp *respond.Response, keepAlive bool, serverSoftware string) error {
	resp.ApplyCommonHeaders(serverSoftware, keepAlive)

	switch resp.Kind {
	case respond.BodyNone:
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		_, err = c.Write(head)
		return err

	case respond.BodyBytes:
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		if _, err := c.Write(head); err != nil {
			return err
		}
		_, err = c.Write(resp.Bytes)
		return err

	case respond.BodyFile:
		resp.Header.Set("Content-Length", itoa64(resp.FileSize))
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		if _, err := c.Write(head); err != nil {
			return err
		}
		go feedFile(c, resp.FilePath)
		return nil

	case respond.BodyStream:
		if resp.StreamHasSize {
			resp.Header.Set("Content-Length", itoa64(resp.StreamSize))
		} else {
			resp.CloseAfter = true
			resp.Header.Set("Connection", "close")
		}
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		if _, err := c.Write(head); err != nil {
			return err
		}
		go feedReader(c, resp.Stream)
		return nil
	}
	return nil
}

// writeResponseAsync is the off-loop twin of writeResponse: CGI invocations
// run to completion in their own goroutine (cgi.Run blocks), so by the time
// a CGI response is ready to frame, the caller is never the reactor
// goroutine. gnet.Conn.Write is only safe to call from the event loop;
// every byte here instead goes through the same paced AsyncWrite path
// feedFile/feedReader already use for bodies, so the header block is no
// exception. See internal/cgi and internal/loop/cgi_feed.go.
func writeResponseAsync(c gnet.Conn, resp *respond.Response, keepAlive bool, serverSoftware string) error {
	resp.ApplyCommonHeaders(serverSoftware, keepAlive)

	switch resp.Kind {
	case respond.BodyNone:
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		if !writePaced(c, head) {
			return errAsyncWriteFailed
		}
		return nil

	case respond.BodyBytes:
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		if !writePaced(c, head) {
			return errAsyncWriteFailed
		}
		if !writePaced(c, resp.Bytes) {
			return errAsyncWriteFailed
		}
		return nil

	case respond.BodyFile:
		resp.Header.Set("Content-Length", itoa64(resp.FileSize))
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		if !writePaced(c, head) {
			return errAsyncWriteFailed
		}
		feedFile(c, resp.FilePath)
		return nil

	case respond.BodyStream:
		if resp.StreamHasSize {
			resp.Header.Set("Content-Length", itoa64(resp.StreamSize))
		} else {
			resp.CloseAfter = true
			resp.Header.Set("Connection", "close")
		}
		head, err := resp.HeaderBytes()
		if err != nil {
			return err
		}
		if !writePaced(c, head) {
			return errAsyncWriteFailed
		}
		feedReader(c, resp.Stream)
		return nil
	}
	return nil
}

// feedFile streams a static file's contents via paced AsyncWrite calls, one
// chunk in flight at a time so a slow peer applies backpressure all the way
// back to this goroutine's read rate instead of buffering the whole file.
func feedFile(c gnet.Conn, path string) {
	f, err := os.Open(path)
	if err != nil {
		c.Close()
		return
	}
	defer f.Close()

	buf := make([]byte, 64<<10)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if !writePaced(c, append([]byte(nil), buf[:n]...)) {
				return
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				c.Close()
			}
			return
		}
	}
}

// feedReader drains an arbitrary stream (a CGI invocation's combined
// leftover+pipe reader, see cgiStreamReader) onto the connection, same
// pacing discipline as feedFile.
func feedReader(c gnet.Conn, r io.ReadCloser) {
	defer r.Close()
	buf := make([]byte, 64<<10)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if !writePaced(c, append([]byte(nil), buf[:n]...)) {
				return
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				c.Close()
				return
			}
			break
		}
	}
	c.Close()
}

// writePaced issues one AsyncWrite and blocks this (off-loop) goroutine
// until gnet's callback confirms the chunk was flushed, implementing
// single-chunk-in-flight backpressure without touching Connection state
// from a non-loop goroutine.
func writePaced(c gnet.Conn, chunk []byte) bool {
	done := make(chan error, 1)
	err := c.AsyncWrite(chunk, func(c gnet.Conn, err error) error {
		done <- err
		return nil
	})
	if err != nil {
		return false
	}
	return <-done == nil
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
