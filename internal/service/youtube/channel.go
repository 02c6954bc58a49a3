package youtube

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
)

const (
	emptyReferenceMessage    = "Paste a channel link or handle in one of the supported formats."
	unsupportedFormatMessage = "Only these formats are supported: https://www.youtube.com/@handle, @handle, or https://www.youtube.com/channel/UCxxxxxxxxxxxxxxxxxxxxxx"

	defaultChannelTitle = "Untitled Channel"
)

var (
	bareHandlePattern  = regexp.MustCompile(`^@([A-Za-z0-9._-]+)(?:[/?#].*)?$`)
	handlePathPattern  = regexp.MustCompile(`^/@([A-Za-z0-9._-]+)(?:/|$)`)
	channelPathPattern = regexp.MustCompile(`^/channel/(UC[a-zA-Z0-9_-]{22})(?:/|$)`)

	schemelessPrefixes = []string{"www.youtube.com/", "youtube.com/", "m.youtube.com/"}
	allowedHosts       = map[string]bool{
		"youtube.com":     true,
		"www.youtube.com": true,
		"m.youtube.com":   true,
	}
)

// Service implements channel resolution, upload ingestion and batch metric
// fetching on top of an API.
type Service struct {
	api         API
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

func NewService(api API, logger *zap.Logger, concurrency int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = constants.BatchConfig.Concurrency
	}
	return &Service{
		api:         api,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ParseChannelReference normalizes a handle, channel URL or handle URL into
// a lookup key.
func ParseChannelReference(input string) (domain.ChannelLookup, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.ChannelLookup{}, errors.NewValidationError(emptyReferenceMessage, "channel", input)
	}

	if m := bareHandlePattern.FindStringSubmatch(trimmed); m != nil {
		return domain.ChannelLookup{Kind: domain.LookupByHandle, Value: m[1]}, nil
	}

	candidate := trimmed
	lower := strings.ToLower(trimmed)
	for _, prefix := range schemelessPrefixes {
		if strings.HasPrefix(lower, prefix) {
			candidate = "https://" + trimmed
			break
		}
	}

	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !allowedHosts[strings.ToLower(u.Hostname())] {
		return domain.ChannelLookup{}, errors.NewValidationError(unsupportedFormatMessage, "channel", input)
	}

	if m := handlePathPattern.FindStringSubmatch(u.Path); m != nil {
		return domain.ChannelLookup{Kind: domain.LookupByHandle, Value: m[1]}, nil
	}
	if m := channelPathPattern.FindStringSubmatch(u.Path); m != nil {
		return domain.ChannelLookup{Kind: domain.LookupByID, Value: m[1]}, nil
	}

	return domain.ChannelLookup{}, errors.NewValidationError(unsupportedFormatMessage, "channel", input)
}

// ResolveChannel looks the channel up and returns its identity together with
// the uploads playlist. A channel without an uploads playlist is not found.
func (s *Service) ResolveChannel(ctx context.Context, lookup domain.ChannelLookup) (*domain.ResolvedChannel, error) {
	record, err := s.api.LookupChannel(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if record == nil || record.ID == "" {
		return nil, errors.NewNotFoundError("Channel not found.", "channel")
	}
	if record.UploadsPlaylistID == "" {
		return nil, errors.NewNotFoundError("Uploads playlist not available.", "uploads_playlist")
	}

	title := record.Title
	if title == "" {
		title = defaultChannelTitle
	}

	resolved := &domain.ResolvedChannel{
		Channel: domain.ChannelInfo{
			ID:           record.ID,
			Title:        title,
			ThumbnailURL: record.ThumbnailURL,
		},
		UploadsPlaylistID: record.UploadsPlaylistID,
	}
	if strings.HasPrefix(record.CustomURL, "@") {
		resolved.Channel.Handle = record.CustomURL
	}
	if record.PublishedAt != "" {
		if createdAt, err := time.Parse(time.RFC3339, record.PublishedAt); err == nil {
			resolved.CreatedAt = &createdAt
		} else {
			s.logger.Debug("Ignoring unparseable channel creation time",
				zap.String("channel_id", record.ID),
				zap.String("published_at", record.PublishedAt))
		}
	}

	return resolved, nil
}
