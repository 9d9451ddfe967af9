// Package store defines the persistence contracts for job records,
// independent of any concrete database. Implementations live under
// internal/platform.
package store
