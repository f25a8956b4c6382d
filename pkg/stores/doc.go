// Package stores keeps a history of scenario builds in SQLite: the options
// a build ran with, its outcome, the resolver stages it applied and the
// bindings it installed. The schema is managed with embedded migrations.
package stores
