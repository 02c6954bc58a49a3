package domain

import "time"

type LookupKind string

const (
	LookupByID     LookupKind = "id"
	LookupByHandle LookupKind = "handle"
)

// ChannelLookup is a normalized channel reference: either a raw channel ID or
// a handle without its leading "@".
type ChannelLookup struct {
	Kind  LookupKind `json:"kind"`
	Value string     `json:"value"`
}

// ChannelInfo is the public identity of a YouTube channel.
type ChannelInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Handle       string `json:"handle,omitempty"`
}

// ResolvedChannel is a channel plus the handles needed to analyze it.
type ResolvedChannel struct {
	Channel           ChannelInfo
	UploadsPlaylistID string
	CreatedAt         *time.Time
}
