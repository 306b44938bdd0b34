// Package idgen wraps the UUID generator used for kernel event envelope
// identifiers so that it can be stubbed in tests. Task control blocks keep
// their own small sequential ids; an envelope id is an opaque string and
// callers must not rely on its format.
package idgen
