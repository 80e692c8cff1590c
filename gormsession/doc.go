// Package gormsession runs dispatch actions through GORM. It is the
// alternative to the Bun session in package database for code bases that
// already hold a *gorm.DB.
package gormsession
