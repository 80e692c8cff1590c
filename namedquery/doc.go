// Package namedquery keeps the SQL behind named queries. Statements use
// ":name" placeholders and are compiled once to positional "?" form, which
// bun and gorm both accept.
package namedquery
