// Package storage is the agent's durable storage: the place the settings
// record, its backup and the static web assets live.
//
// DirFS roots the storage at a host directory; MemFS keeps everything in
// memory for the simulator and the tests. Both must be mounted before use and
// fail every operation with ErrNotMounted until then, which is how a failed
// mount degrades the settings store.
package storage
