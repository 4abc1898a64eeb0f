// Package session owns the session lifecycle: the authoritative local
// record of currently-open named sessions and every transition between
// the open, closed, and deleted states.
//
// The local map, stored as one JSON blob under a well-known storage key,
// is authoritative while a session is open; the bookmark mirror is the
// sole record once it closes. A session closes implicitly when its
// window disappears, detected by probing each recorded window id on
// every read of the map.
//
// Lifecycle operations that represent a direct user action (takeover,
// restore-then-activate, rename, delete) propagate errors so failures
// are visible; background mirroring is opportunistic and only logs.
//
// Takeover Protocol:
//  1. Resolve the mirror tab record by bookmark id; fail if absent.
//  2. Activate the URL if already open in any window, else open it.
//  3. Stamp the mirror record's owner with this instance's id.
//
// Restoration Process:
//  1. Create a blank focused window before touching any tabs.
//  2. Write the local record reusing the original session id.
//  3. Recreate each mirrored tab's URL as a real host tab.
//  4. Re-point the window's initial tab at the session page, pinned.
//
// Example Usage:
//
//	manager := session.NewManager(storage, tabs, repo, cfg.Session, logger)
//	created, err := manager.Create(ctx, session.CreateOptions{WindowID: 7, Name: "Work"})
//	err = manager.Activate(ctx, created.ID)
package session
