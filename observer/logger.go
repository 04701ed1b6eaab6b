package observer

import (
	"github.com/golang/glog"

	"github.com/krisalay/cached-provider/types"
)

// Logger writes one glog line per event at verbosity Level.
type Logger struct {
	Level glog.Level
}

func (l Logger) Observe(ev types.Event) {
	if glog.V(l.Level) {
		glog.Infof("cache %s %s in %v (cachedAt=%s)",
			ev.Method, ev.Type, ev.Latency(), ev.CachedAt.Format("15:04:05.000"))
	}
}
