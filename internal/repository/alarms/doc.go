// Package alarms implements persistence for received alarm notifications.
//
// The SQLiteRepository stores notifications in a SQLite file and exposes a
// Repository interface that the receiver API depends on.
package alarms
