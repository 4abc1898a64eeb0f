// Package bookmarks owns the bookmark mirror: the mapping between a
// session id and its three-node bookmark subtree (session folder,
// "Opened Pages", "Saved Pages").
//
// The repository is the only component permitted to mutate the subtree.
// Discovery runs once per repository lifetime and is cached; external
// edits to the tree are not observed until the process restarts.
//
// Every public method except UpdateTabOwner swallows backend errors,
// logs them, and returns a safe default. Partial results are preferred
// over hard failure because callers invoke the repository
// opportunistically. UpdateTabOwner propagates errors because a failed
// ownership write must be visible to the takeover protocol.
package bookmarks
