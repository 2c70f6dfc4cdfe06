package service

import "github.com/narapeka/emby.plugin.strmx/internal/model"

// NewPlaybackInfo builds the minimal PlaybackInfo payload for a resolved
// strm stream: one remote HTTP media source pointing straight at the stream
// URL. Container is left empty so the player runs its own format detection,
// and the stream indexes stay null for the same reason. The play session id
// is derived from the item id, so repeated bypasses for the same item are
// reproducible.
func NewPlaybackInfo(itemID, streamURL string) *model.PlaybackInfo {
	return &model.PlaybackInfo{
		MediaSources: []model.MediaSource{{
			ID:                  itemID,
			Protocol:            "Http",
			Type:                "Default",
			Container:           "",
			IsRemote:            true,
			SupportsTranscoding: true,
			IsInfiniteStream:    false,
			IsIO:                false,
			DirectStreamURL:     streamURL,
		}},
		PlaySessionID: "play_" + itemID,
	}
}
