// Package fusion merges the extractor's and the Data API's views of channels
// and videos into single records. Everything here is pure: no I/O, no clock,
// so the merge rules stay table-testable.
package fusion

import "github.com/onnwee/yt-observatory/schema"

// CombineChannel merges both channel views. The extractor wins on identity
// and presentation fields it observes directly (url, tags, thumbnails); the
// API is the only source for lifetime statistics and registration metadata.
// Either side may be nil when its source is down.
func CombineChannel(ext *schema.ChannelInfo, api *schema.ChannelAPIInfo, listName string) schema.Channel {
	ch := schema.Channel{ListName: listName}
	if ext != nil {
		ch.ChannelID = ext.ChannelID
		ch.Title = ext.Title
		ch.Description = ext.Description
		ch.ChannelURL = ext.ChannelURL
		ch.FollowerCount = ext.ChannelFollowerCount
		ch.Tags = ext.Tags
		ch.Thumbnails = ext.Thumbnails
	}
	if api != nil {
		if ch.ChannelID == "" {
			ch.ChannelID = api.ID
		}
		if ch.Title == "" {
			ch.Title = api.Title
		}
		if ch.Description == "" {
			ch.Description = api.Description
		}
		if ch.FollowerCount == nil {
			ch.FollowerCount = api.SubscriberCount
		}
		ch.CustomURL = api.CustomURL
		ch.ViewCount = api.ViewCount
		ch.VideoCount = api.VideoCount
		ch.PublishedAt = api.PublishedAt
		ch.Country = api.Country
	}
	return ch
}

// CombineVideo merges one extractor entry with its API record. Identity and
// the watch URL come from the extractor; the API wins on every field it
// carries and the extractor backfills the rest. api may be nil when the API
// returned nothing for this id.
func CombineVideo(ext schema.Video, api *schema.Video) schema.Video {
	out := ext
	if api == nil {
		return out
	}
	if out.Title == "" {
		out.Title = api.Title
	}
	if api.Description != nil {
		out.Description = api.Description
	}
	if api.Duration != nil {
		out.Duration = api.Duration
	}
	if api.Tags != nil {
		out.Tags = api.Tags
	}
	if api.ViewCount != nil {
		out.ViewCount = api.ViewCount
	}
	if api.LikeCount != nil {
		out.LikeCount = api.LikeCount
	}
	if api.CommentCount != nil {
		out.CommentCount = api.CommentCount
	}
	if api.UploadDate != nil {
		out.UploadDate = api.UploadDate
	}
	if api.DefaultAudioLanguage != "" {
		out.DefaultAudioLanguage = api.DefaultAudioLanguage
	}
	if len(api.Thumbnails) > 0 {
		out.Thumbnails = api.Thumbnails
	}
	return out
}

// PartitionNewKnown splits ids into unseen and already-stored ones,
// preserving the input order within each half.
func PartitionNewKnown(ids []string, existing map[string]bool) (newIDs, knownIDs []string) {
	for _, id := range ids {
		if existing[id] {
			knownIDs = append(knownIDs, id)
		} else {
			newIDs = append(newIDs, id)
		}
	}
	return newIDs, knownIDs
}
