// Package postgres implements the store interfaces using a PostgreSQL
// database as the storage backend. Job claiming relies on
// FOR UPDATE SKIP LOCKED so that multiple worker processes can poll the
// same table without handing the same job to two workers.
package postgres
