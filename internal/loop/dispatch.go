package loop

import (
	"os"
	"path"
	"strings"

	"github.com/mohalnassery/localhost/internal/config"
	"github.com/mohalnassery/localhost/internal/respond"
	"github.com/mohalnassery/localhost/internal/router"
	"github.com/mohalnassery/localhost/internal/session"
	"github.com/mohalnassery/localhost/internal/urlpath"
)

// dispatchResult tells the caller whether the response is ready synchronously
// or requires handing the request off to a CGI invocation.
type dispatchResult struct {
	Response *respond.Response
	CGI      *cgiDispatch // non-nil when the route is a CGI route
}

// cgiDispatch carries everything runCGI needs, computed once up front so the
// background goroutine touches no Connection state.
type cgiDispatch struct {
	Interpreter string
	ScriptPath  string
	Method      string
	QueryString string
	PathInfo    string
	ScriptName  string
	ContentType string
	HasBody     bool
	ContentLen  int64
	Header      map[string][]string
	ServerName  string
	ServerPort  string
	RemoteAddr  string
	Body        []byte
	ServerSoft  string
	ErrorPages  map[int]string
}

// resolveSession looks up the session referenced by the request's cookie
// header, issuing a new one when absent. The returned
// setCookie value, if non-empty, must be applied to the eventual response.
func resolveSession(store *session.Store, cookieName string, req *httpReq) (*session.Session, string) {
	pairs := session.ParseCookieHeader(req.Header)
	if v, ok := session.Lookup(pairs, cookieName); ok {
		if sess, found := store.Get(v); found {
			return sess, ""
		}
	}
	sess := store.Issue()
	return sess, session.SetCookieHeader(cookieName, sess, sess.ExpiresAt.Sub(sess.CreatedAt))
}

// dispatch implements the routing-to-response pipeline for
// every route kind except CGI, which the caller handles asynchronously (see
// internal/loop/cgi_feed.go) because it cannot block the reactor goroutine.
func dispatch(decision router.Decision, cleanPath string, req *httpReq, block *config.ServerBlock) dispatchResult {
	if decision.Status == 404 {
		return dispatchResult{Response: respond.ErrorPage(404, errorPages(block), os.ReadFile)}
	}
	if decision.Status == 405 {
		resp := respond.ErrorPage(405, errorPages(block), os.ReadFile)
		resp.Header.Set("Allow", decision.Allow)
		return dispatchResult{Response: resp}
	}
	if decision.Status == 501 {
		return dispatchResult{Response: respond.ErrorPage(501, errorPages(block), os.ReadFile)}
	}

	route := decision.Route

	if route.RedirectTarget != "" {
		status := route.RedirectStatus
		return dispatchResult{Response: respond.Redirect(route.RedirectTarget, status)}
	}

	if route.CGI != "" && matchesCGIExtension(cleanPath, route.CGIExtensions) && targetsRegularFile(cleanPath, route) {
		return dispatchResult{CGI: buildCGIDispatch(route, cleanPath, req, block)}
	}

	switch req.Method {
	case "DELETE":
		fsPath, err := urlpath.ResolveUnderRoot(cleanPath, route.Prefix, route.Root)
		if err != nil {
			return dispatchResult{Response: respond.ErrorPage(403, errorPages(block), os.ReadFile)}
		}
		resp, _ := respond.HandleDelete(fsPath, route.Root)
		return dispatchResult{Response: resp}

	case "POST", "PUT":
		if route.UploadEnabled {
			root := route.UploadRoot
			if root == "" {
				root = route.Root
			}
			resp, _ := respond.HandleUpload(req.Body, req.Header.Get("Content-Type"), root)
			return dispatchResult{Response: resp}
		}
		return dispatchResult{Response: respond.ErrorPage(403, errorPages(block), os.ReadFile)}

	default: // GET, HEAD
		fsPath, err := urlpath.ResolveUnderRoot(cleanPath, route.Prefix, route.Root)
		if err != nil {
			return dispatchResult{Response: respond.ErrorPage(403, errorPages(block), os.ReadFile)}
		}
		resp, _ := respond.ServeStatic(fsPath, route.Root, route.Index, route.DirectoryListing, req.Method == "HEAD")
		return dispatchResult{Response: resp}
	}
}

// targetsRegularFile reports whether cleanPath, resolved under route's
// root, names an existing regular file — spec.md §4.5 step 5 dispatches to
// CGI only then, falling back to static handling (and its own 404/403)
// otherwise rather than forking an interpreter over a missing script.
func targetsRegularFile(cleanPath string, route *config.Route) bool {
	fsPath, err := urlpath.ResolveUnderRoot(cleanPath, route.Prefix, route.Root)
	if err != nil {
		return false
	}
	fi, err := os.Stat(fsPath)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}

func matchesCGIExtension(p string, exts []string) bool {
	ext := path.Ext(p)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func errorPages(block *config.ServerBlock) map[int]string {
	if block == nil {
		return nil
	}
	return block.ErrorPages
}

func buildCGIDispatch(route *config.Route, cleanPath string, req *httpReq, block *config.ServerBlock) *cgiDispatch {
	scriptPath, err := urlpath.ResolveUnderRoot(cleanPath, route.Prefix, route.Root)
	if err != nil {
		scriptPath = route.Root
	}
	return &cgiDispatch{
		Interpreter: route.CGI,
		ScriptPath:  scriptPath,
		Method:      string(req.Method),
		QueryString: req.RawQuery,
		PathInfo:    cleanPath,
		ScriptName:  route.Prefix,
		ContentType: req.Header.Get("Content-Type"),
		HasBody:     req.HasBody(),
		ContentLen:  req.ContentLength,
		Header:      map[string][]string(req.Header),
		ServerName:  req.Host,
		ServerPort:  req.ServerPort,
		RemoteAddr:  req.RemoteAddr,
		Body:        req.Body,
		ErrorPages:  errorPages(block),
	}
}
