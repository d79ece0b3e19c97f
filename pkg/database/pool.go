package database

import (
	"sync"
)

// Serverless invocations reuse one Store per process; opening a fresh pool on
// every request exhausts the database connection limit.
var (
	sharedMu  sync.Mutex
	shared    Store
	sharedCfg Config
)

// GetShared returns the process-wide Store, creating it on first use. A
// config change (tests, env reload) rebuilds the store.
func GetShared(cfg Config) Store {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil && cfg == sharedCfg {
		return shared
	}
	if shared != nil {
		_ = shared.Close()
	}
	shared = NewStore(cfg)
	sharedCfg = cfg
	return shared
}

// ConnectionStats exposes pool state for the debug endpoint.
func ConnectionStats() map[string]interface{} {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	stats := map[string]interface{}{"initialized": shared != nil}
	if pg, ok := shared.(*PostgresStore); ok {
		s := pg.db.Stats()
		stats["open_connections"] = s.OpenConnections
		stats["in_use"] = s.InUse
		stats["idle"] = s.Idle
		stats["wait_count"] = s.WaitCount
	}
	return stats
}
