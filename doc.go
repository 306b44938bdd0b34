// Package mkernel provides a host-simulated real-time kernel: a
// priority-preemptive task scheduler driven by a logical tick, a fixed-arena
// heap allocator, blocking synchronisation primitives, bounded inter-task
// channels and software timers.
//
// The simulation runs on a single logical thread of control; tasks never
// execute concurrently with each other. End-users interact with the kernel
// via the high-level Service façade exposed by the root package:
//
//	srv, _ := mkernel.New()
//	rt := srv.Runtime()
//	rt.CreateTask("worker", func(args interface{}) {
//	    for {
//	        rt.Delay(10)
//	    }
//	}, 1024, nil, scheduler.PriorityNormal)
//	_ = rt.Start(ctx)
//
// For deterministic tests, start the kernel without the wall-clock loop and
// advance time by hand with Runtime.Step.
package mkernel
