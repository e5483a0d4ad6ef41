package httpparse

import "testing"

func parseOne(t *testing.T, raw string) (*Request, *fakeSource) {
	t.Helper()
	src := newFakeSource(raw)
	p := NewHeadParser(16 << 10)
	req, outcome, perr := p.Parse(src)
	if outcome != Complete {
		t.Fatalf("head parse outcome=%v perr=%v", outcome, perr)
	}
	return req, src
}

func TestBodyReaderFixedLength(t *testing.T) {
	req, src := parseOne(t, "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello")
	br := NewBodyReader(req, 1<<20, nil)
	outcome, perr := br.Read(src)
	if outcome != Complete || perr != nil {
		t.Fatalf("outcome=%v perr=%v", outcome, perr)
	}
	if string(req.Body) != "hello" {
		t.Errorf("Body = %q", req.Body)
	}
}

func TestBodyReaderFixedLengthNeedsMore(t *testing.T) {
	req, src := parseOne(t, "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhel")
	br := NewBodyReader(req, 1<<20, nil)
	outcome, _ := br.Read(src)
	if outcome != NeedMore {
		t.Fatalf("outcome=%v, want NeedMore", outcome)
	}
	src.feed("lo")
	outcome, perr := br.Read(src)
	if outcome != Complete || perr != nil {
		t.Fatalf("outcome=%v perr=%v", outcome, perr)
	}
	if string(req.Body) != "hello" {
		t.Errorf("Body = %q", req.Body)
	}
}

func TestBodyReaderExceedsMax(t *testing.T) {
	req, src := parseOne(t, "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello")
	br := NewBodyReader(req, 3, nil)
	outcome, perr := br.Read(src)
	if outcome != Failed || perr.Status != 413 {
		t.Fatalf("outcome=%v perr=%v, want Failed/413", outcome, perr)
	}
}

func TestBodyReaderChunked(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nHost: h\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	req, src := parseOne(t, raw)
	br := NewBodyReader(req, 1<<20, nil)
	outcome, perr := br.Read(src)
	if outcome != Complete || perr != nil {
		t.Fatalf("outcome=%v perr=%v", outcome, perr)
	}
	if string(req.Body) != "hello world" {
		t.Errorf("Body = %q", req.Body)
	}
}

func TestBodyReaderChunkedMalformedSize(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nHost: h\r\nTransfer-Encoding: chunked\r\n\r\nZZ\r\nhello\r\n"
	req, src := parseOne(t, raw)
	br := NewBodyReader(req, 1<<20, nil)
	outcome, perr := br.Read(src)
	if outcome != Failed || perr.Status != 400 {
		t.Fatalf("outcome=%v perr=%v, want Failed/400", outcome, perr)
	}
}

type collectSink struct{ got []byte }

func (s *collectSink) Write(p []byte) (int, error) {
	s.got = append(s.got, p...)
	return len(p), nil
}

func TestBodyReaderSinkStreaming(t *testing.T) {
	req, src := parseOne(t, "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello")
	sink := &collectSink{}
	br := NewBodyReader(req, 1<<20, sink)
	outcome, perr := br.Read(src)
	if outcome != Complete || perr != nil {
		t.Fatalf("outcome=%v perr=%v", outcome, perr)
	}
	if string(sink.got) != "hello" {
		t.Errorf("sink got %q", sink.got)
	}
	if len(req.Body) != 0 {
		t.Errorf("Body should stay empty when a sink is set, got %q", req.Body)
	}
}

func TestBodyReaderZeroLengthDone(t *testing.T) {
	req, _ := parseOne(t, "GET /x HTTP/1.1\r\nHost: h\r\n\r\n")
	br := NewBodyReader(req, 1<<20, nil)
	if !br.Done() {
		t.Error("expected Done() for a request with no declared body")
	}
}
