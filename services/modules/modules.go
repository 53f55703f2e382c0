// Package modules holds the concrete modules that feed and react to the
// coordinator.
package modules

const (
	NameWorld     = "world"
	NameMemory    = "memory"
	NameAwareness = "awareness"
	NameSocial    = "social"
)
