package model

// ItemMetadata is the subset of an Emby item record used to decide whether
// playback can bypass server-side probing. Fetched fresh per request and
// never cached.
type ItemMetadata struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
	Path string `json:"Path"`
}
