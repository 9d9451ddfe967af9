// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the job store, translating HTTP concerns to job lifecycle operations.
package api
