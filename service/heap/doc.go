// Package heap implements a fixed-arena allocator with an address-ordered
// free list and adjacent-block coalescing. Block headers live inside the
// arena itself and links are byte offsets, so there are no Go pointers into
// the managed region. Exhaustion is reported as an error and is never fatal.
package heap
