package loop

import "github.com/mohalnassery/localhost/internal/httpparse"

// httpReq pairs a parsed request with the connection-level facts CGI env
// vars and session handling need but the parser has no business knowing
// (REMOTE_ADDR for CGI comes from the accepted socket, not the wire).
type httpReq struct {
	*httpparse.Request
	RemoteAddr string
	ServerPort string
}
