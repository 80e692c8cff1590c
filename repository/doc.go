// Package repository declares data-access operations with Go types. Each
// constructor registers a dispatch operation and returns a handle whose Call
// method has the result type of the operation: an entity pointer, a slice,
// a row count or just an error.
package repository
