// Package database manages Bun connections for mysql, postgres and sqlite
// and provides a Bun backed persistence session for the dispatch layer,
// along with configuration, query logging, table migrations and SQL error
// classification.
package database
