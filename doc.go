// Package demote is the bootstrap layer for a long-running daemon that was
// started with elevated privileges and needs to end up supervised and
// unprivileged.
//
// It covers the startup steps where an ordering mistake or a silent default
// hurts the most: resolving and dropping the process identity, holding a pid
// file as a single-instance lock, adopting listening sockets handed down by a
// service manager, and deciding the effective log level from a config file
// and a command line override.
//
// The Bootstrap function runs those steps in a fixed sequence and hands back
// a Process, leaving argument parsing, config file formats, the concrete log
// backend, and the actual service loop to the caller.
package demote
