// Package store provides abstractions for data persistence. Interfaces here
// are implemented by the postgres platform package; workers and services
// depend only on these interfaces so they can be tested with in-memory
// fakes.
package store
