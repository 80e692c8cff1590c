// Package dispatch turns declared data-access operations into calls against a
// persistence session: create, merge, delete, find by key and named queries,
// with parameter binding, pagination and optional single results.
package dispatch
