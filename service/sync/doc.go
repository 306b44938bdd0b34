// Package sync provides the kernel's blocking synchronisation primitives:
// counting semaphores, ownership-checked mutexes, recursive mutexes and
// event groups. They are layered (Mutex is a Semaphore with an owner,
// RecursiveMutex adds a re-entry counter) and all of them coordinate
// through the kernel's critical section and block/wake surface rather than
// host thread waits, so blocking means deregistering from the ready
// structure and scheduling away.
//
// Every failure mode is a typed error: exhausted counts, ownership
// violations and timeouts never mutate primitive state and never panic.
package sync
