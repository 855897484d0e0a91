package model

import "sync"

var (
	globalRegistry *Registry
	globalOnce     sync.Once
)

// Global returns the process-wide registry, creating the default registry
// on first use when InitGlobal was not called.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewDefaultRegistry()
	})
	return globalRegistry
}

// InitGlobal installs r as the process-wide registry. Only the first call
// before any Global call takes effect; it reports whether r was installed.
func InitGlobal(r *Registry) bool {
	installed := false
	globalOnce.Do(func() {
		globalRegistry = r
		installed = true
	})
	return installed
}

// ResetGlobal clears the process-wide registry. Tests only; not safe for
// concurrent use.
func ResetGlobal() {
	globalOnce = sync.Once{}
	globalRegistry = nil
}
