// Package kernel implements a conservative parallel discrete-event
// simulation (PDES) core: entities are partitioned across worker
// goroutines called timelines, virtual time advances through
// synchronization windows bounded by cross-timeline lookahead, and
// events execute in a deterministic, causality-preserving order within
// and across timelines.
//
// The kernel is a library, not a program: callers build entities,
// channels and processes during an initialization phase, then drive
// the simulation forward with Interface.Advance or
// Interface.AdvanceUntil. Everything outside this package (network
// models, emulation bridges, configuration parsers, random-number
// streams) is a client of this kernel, not part of it.
package kernel
