// Package driving defines the interfaces through which the outside world
// drives the core (the "primary" ports in hexagonal architecture).
//
// The CLI adapter depends on these interfaces; core services implement them.
package driving
