package logger

import "sync"

// Component names of the pipedata stages. Stages built without an explicit
// logger log through Get(name).
const (
	ComponentFiles     = "files"
	ComponentRecords   = "records"
	ComponentColumnar  = "columnar"
	ComponentRedis     = "redis"
	ComponentIngest    = "ingest"
	ComponentScheduler = "scheduler"
)

// DefaultComponents is what RegisterDefaults seeds when given no names.
var DefaultComponents = []string{
	ComponentFiles,
	ComponentRecords,
	ComponentColumnar,
	ComponentRedis,
	ComponentIngest,
	ComponentScheduler,
}

var components = struct {
	sync.RWMutex
	byName map[string]*Logger
}{byName: make(map[string]*Logger)}

// Register sets the logger returned by Get(name).
func Register(name string, l *Logger) {
	components.Lock()
	defer components.Unlock()
	components.byName[name] = l
}

// Get returns the logger registered for a component, or the global logger
// tagged with the component when none is.
func Get(name string) *Logger {
	components.RLock()
	l, ok := components.byName[name]
	components.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults registers base, tagged with each component, for names
// (DefaultComponents when empty). A nil base means the global logger, so
// call it after Init. Fields already on base, such as the build version,
// appear on every stage's lines.
func RegisterDefaults(base *Logger, names ...string) {
	if base == nil {
		base = GetGlobalLogger()
	}
	if len(names) == 0 {
		names = DefaultComponents
	}
	for _, name := range names {
		Register(name, base.WithComponent(name))
	}
}

// Reset drops every registered component logger.
func Reset() {
	components.Lock()
	defer components.Unlock()
	components.byName = make(map[string]*Logger)
}
