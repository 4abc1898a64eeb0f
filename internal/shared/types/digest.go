package types

// PageDigest is one cached page summary. Digests are keyed by an opaque
// string (typically the page URL) and carry no TTL; retention is purely
// capacity-driven.
type PageDigest struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Summary   string `json:"summary"`
	CreatedAt int64  `json:"createdAt"`
}
