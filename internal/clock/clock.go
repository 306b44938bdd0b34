// Package clock provides the wall-clock source used to stamp kernel event
// envelopes. It is distinct from the kernel tick, which is a logical counter.
package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }
