// Package storage persists pipeline tables in a SQLite database.
//
// Every write replaces the named table: the old table is dropped, recreated
// from the dataset's columns and filled, all inside one transaction. Tables
// are written independently, so one failed write never blocks the others and
// never rolls back tables that were already stored.
package storage
