// Package host declares the collaborator contracts the session engine
// consumes from its hosting browser environment: durable key-value
// storage, the bookmark tree, and tab/window control.
//
// The engine never reaches for an ambient host object; every manager takes
// these interfaces in its constructor so tests run against the in-memory
// fakes in host/memory and production runs against the HTTP bridge in
// host/remote.
package host
