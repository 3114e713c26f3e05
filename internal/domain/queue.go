package domain

// Extra-data keys written by the resolver and read by the broadcast player.
const (
	ExtraVideoURL      = "video_url"
	ExtraMediaURL      = "media_url"
	ExtraMediaType     = "media_type"
	ExtraVisualKeyword = "visual_keyword"
)

// QueueItem is one run-of-show segment. The file format is owned by the
// production pipeline; this subsystem only guarantees the extra_data media
// fields match the last ResolvedMedia for the item.
type QueueItem struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type"`
	MainHeading     string                 `json:"main_heading"`
	ContentText     string                 `json:"content_text"`
	DisplayDuration int                    `json:"display_duration"`
	Timestamp       int64                  `json:"timestamp"`
	ExtraData       map[string]interface{} `json:"extra_data"`
}

// MediaURL returns the resolved media URL attached to the item, if any.
func (i *QueueItem) MediaURL() string {
	if i.ExtraData == nil {
		return ""
	}
	if v, ok := i.ExtraData[ExtraVideoURL].(string); ok && v != "" {
		return v
	}
	if v, ok := i.ExtraData[ExtraMediaURL].(string); ok && v != "" {
		return v
	}
	return ""
}

// SetMedia attaches a ResolvedMedia to the item's extra data.
func (i *QueueItem) SetMedia(media ResolvedMedia) {
	if i.ExtraData == nil {
		i.ExtraData = make(map[string]interface{})
	}
	i.ExtraData[ExtraVideoURL] = media.URL
	i.ExtraData[ExtraMediaURL] = media.URL
	i.ExtraData[ExtraMediaType] = string(media.Type)
}
