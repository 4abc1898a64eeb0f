// Package types defines the shared data model for the session engine.
//
// The model mirrors two representations of the same state:
//   - NamedSession / NamedSessionTab: the authoritative local record of an
//     open session and its tabs
//   - BookmarkSessionFolder / ClosedNamedSession / SyncedTab: views derived
//     from the bookmark mirror
//
// All timestamps are epoch milliseconds. A session with a non-nil WindowID
// is open; a nil WindowID means the session exists only in the mirror.
package types
