// Package scheduler implements the task registry and the priority-preemptive
// dispatcher of the simulated kernel.
//
// The kernel models a single logical thread of control: at any moment either
// the dispatcher or exactly one task executes. Tasks are goroutines, but they
// are strictly gated: a task runs only after the dispatcher grants it a
// quantum and it hands control back at its next suspension point (Delay,
// Yield, or a blocking primitive built on BlockCurrentLocked). Preemption is
// therefore logical: it takes effect at tick boundaries and suspension
// points, never mid-instruction.
//
// The Kernel is an explicit context object; there is no package-level
// singleton. Synchronisation primitives receive the kernel at construction
// and coordinate through its lock (Lock/Unlock) and its block/wake surface,
// keeping the kernel-before-primitive lock order throughout.
package scheduler
