// Package scheduler owns the in-memory job cache and the tick loop that
// detects and executes due jobs.
//
// One timer drives ticks; ticks never overlap (an in-flight guard skips a
// tick while the previous one is still running). Due jobs within a tick run
// sequentially, and each job's execute-then-persist cycle completes before
// the next job starts.
//
// The store is the authoritative copy across restarts. Running two scheduler
// instances against the same store is unsupported: there is no lease or
// distributed lock, and the caches can diverge. One active scheduler per
// store is a documented assumption, not an enforced one.
package scheduler
