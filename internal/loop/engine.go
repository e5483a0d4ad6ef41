package loop

import (
	"context"
	"fmt"

	"github.com/panjf2000/gnet/v2"

	"github.com/mohalnassery/localhost/internal/config"
	"github.com/mohalnassery/localhost/internal/router"
)

// listenAddrs collects every distinct (host, port) across all server
// blocks, rendered as gnet protocol addresses ("tcp://host:port"): one
// socket per distinct listen endpoint, shared across server blocks with
// matching host/port.
func listenAddrs(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var addrs []string
	for _, sb := range cfg.Servers {
		for _, ep := range sb.Listen {
			key := router.EndpointKey(ep.Host, ep.Port)
			if seen[key] {
				continue
			}
			seen[key] = true
			host := ep.Host
			if host == "" {
				host = "0.0.0.0"
			}
			addrs = append(addrs, fmt.Sprintf("tcp://%s:%d", host, ep.Port))
		}
	}
	return addrs
}

// Run starts the event loop and blocks until it stops (error, signal, or
// Stop). A single gnet engine backs every listener: gnet.Rotate accepts a
// slice of protocol addresses sharing one EventHandler and one set of event
// loops, which is what lets every socket in a multi-server-block
// configuration still be served by a single reactor goroutine rather than
// one goroutine per listen() call.
func Run(cfg *config.Config, e *Engine) error {
	addrs := listenAddrs(cfg)
	if len(addrs) == 0 {
		return fmt.Errorf("loop: no listen endpoints configured")
	}
	return gnet.Rotate(e, addrs,
		gnet.WithMulticore(false),
		gnet.WithNumEventLoop(1),
		gnet.WithTicker(true),
		gnet.WithReusePort(true),
	)
}

// Stop requests a graceful shutdown; gnet drains in-flight connections
// itself before OnBoot's engine reports Stop complete.
func Stop(ctx context.Context, e *Engine) error {
	return e.eng.Stop(ctx)
}
