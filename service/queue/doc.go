// Package queue provides the kernel's bounded inter-task channels: a typed
// fixed-capacity ring queue and a byte-stream message buffer. Both integrate
// with the scheduler's block/wake surface, so a zero timeout fails
// immediately while a positive timeout deregisters the caller from the
// ready structure until space or data arrives. The message buffer allows
// partial transfers as a designed degraded-success mode, not an error.
package queue
