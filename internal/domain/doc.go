// Package domain contains the core entities of the application: meals,
// pending analysis jobs, clarifications, reports, and export jobs, together
// with their validation and lifecycle rules. Domain types have no
// dependencies on persistence or transport concerns.
package domain
