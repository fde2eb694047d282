// Package config defines the adapter settings and provides helpers to load,
// validate and save them in YAML format.
//
// Config describes the DR server connection, the notification sink, the
// allow-list of event classes and logging. Origin credentials may also come
// from the environment or from a .env file next to the configuration file.
package config
