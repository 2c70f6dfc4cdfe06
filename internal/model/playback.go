package model

// MediaSource describes a single remote stream inside a PlaybackInfo
// response. The field set and casing are a compatibility contract with Emby
// player clients and must not change.
type MediaSource struct {
	ID                         string `json:"Id"`
	Protocol                   string `json:"Protocol"`
	Type                       string `json:"Type"`
	Container                  string `json:"Container"`
	IsRemote                   bool   `json:"IsRemote"`
	SupportsTranscoding        bool   `json:"SupportsTranscoding"`
	IsInfiniteStream           bool   `json:"IsInfiniteStream"`
	IsIO                       bool   `json:"IsIO"`
	DefaultAudioStreamIndex    *int   `json:"DefaultAudioStreamIndex"`
	DefaultSubtitleStreamIndex *int   `json:"DefaultSubtitleStreamIndex"`
	DirectStreamURL            string `json:"DirectStreamUrl"`
}

// PlaybackInfo is the synthesized payload returned instead of the server's
// own PlaybackInfo response when an strm item is bypassed.
type PlaybackInfo struct {
	MediaSources  []MediaSource `json:"MediaSources"`
	PlaySessionID string        `json:"PlaySessionId"`
}
