package youtube

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/util"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// API is the narrow upstream surface the analysis pipeline depends on.
// Responses are narrowed into plain records at this boundary.
type API interface {
	LookupChannel(ctx context.Context, lookup domain.ChannelLookup) (*ChannelRecord, error)
	ListUploads(ctx context.Context, playlistID, pageToken string) (*UploadPage, error)
	ListVideos(ctx context.Context, ids []string, detailed bool) ([]VideoRecord, error)
}

type ChannelRecord struct {
	ID                string
	Title             string
	CustomURL         string
	PublishedAt       string
	ThumbnailURL      string
	UploadsPlaylistID string
}

type PlaylistEntry struct {
	VideoID     string
	PublishedAt string
}

type UploadPage struct {
	Items         []PlaylistEntry
	NextPageToken string
}

type VideoRecord struct {
	ID       string
	Title    string
	Views    uint64
	Likes    uint64
	Comments uint64
	Duration string
}

type ClientConfig struct {
	APIKey          string
	CredentialsFile string
	TokenFile       string
	Endpoint        string
	RequestTimeout  time.Duration
	DailyQuota      int
	// HTTPClient overrides transport and credentials entirely; used against fakes.
	HTTPClient *http.Client
}

// Client talks to the YouTube Data API v3 with a per-call timeout, a daily
// quota budget and a circuit breaker in front of every request.
type Client struct {
	service        *youtube.Service
	logger         *zap.Logger
	requestTimeout time.Duration
	quota          *QuotaTracker
	breaker        *util.CircuitBreaker
}

var _ API = (*Client)(nil)

func NewClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts, mode, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = constants.TimeoutConfig.UpstreamRequest
	}

	client := &Client{
		service:        service,
		logger:         logger,
		requestTimeout: timeout,
		quota:          NewQuotaTracker(cfg.DailyQuota, logger),
		breaker: util.NewCircuitBreaker("youtube",
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger),
	}

	_, remaining, resetAt := client.quota.Status()
	logger.Info("YouTube client initialized",
		zap.String("mode", mode),
		zap.Duration("request_timeout", timeout),
		zap.Int("quota_remaining", remaining),
		zap.Time("quota_reset", resetAt))

	return client, nil
}

func clientOptions(ctx context.Context, cfg ClientConfig) ([]option.ClientOption, string, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.HTTPClient != nil:
		return append(opts, option.WithHTTPClient(cfg.HTTPClient)), "Custom HTTP client", nil
	case cfg.APIKey != "":
		return append(opts, option.WithAPIKey(cfg.APIKey)), "API Key", nil
	case cfg.CredentialsFile != "" && cfg.TokenFile != "":
		httpClient, err := oauthHTTPClient(ctx, cfg.CredentialsFile, cfg.TokenFile)
		if err != nil {
			return nil, "", err
		}
		return append(opts, option.WithHTTPClient(httpClient)), "OAuth", nil
	default:
		return nil, "", fmt.Errorf("YouTube API key or OAuth credentials are required")
	}
}

func oauthHTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(credBytes, youtube.YoutubeReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("unable to parse token file: %w", err)
	}

	return oauthCfg.Client(ctx, token), nil
}

func (c *Client) LookupChannel(ctx context.Context, lookup domain.ChannelLookup) (*ChannelRecord, error) {
	call := c.service.Channels.List([]string{"snippet", "contentDetails"}).
		Fields("items(id,snippet(title,customUrl,publishedAt,thumbnails(high(url),medium(url),default(url))),contentDetails(relatedPlaylists(uploads)))")
	if lookup.Kind == domain.LookupByID {
		call = call.Id(lookup.Value)
	} else {
		call = call.ForHandle(lookup.Value)
	}

	var response *youtube.ChannelListResponse
	err := c.do(ctx, "channels.list", func(callCtx context.Context) error {
		var err error
		response, err = call.Context(callCtx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(response.Items) == 0 || response.Items[0] == nil {
		return nil, nil
	}

	item := response.Items[0]
	record := &ChannelRecord{ID: item.Id}
	if item.Snippet != nil {
		record.Title = item.Snippet.Title
		record.CustomURL = item.Snippet.CustomUrl
		record.PublishedAt = item.Snippet.PublishedAt
		record.ThumbnailURL = extractThumbnail(item.Snippet.Thumbnails)
	}
	if item.ContentDetails != nil && item.ContentDetails.RelatedPlaylists != nil {
		record.UploadsPlaylistID = item.ContentDetails.RelatedPlaylists.Uploads
	}
	return record, nil
}

func (c *Client) ListUploads(ctx context.Context, playlistID, pageToken string) (*UploadPage, error) {
	call := c.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(constants.IngestionConfig.PageSize).
		Fields("items(contentDetails(videoId,videoPublishedAt)),nextPageToken")
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	var response *youtube.PlaylistItemListResponse
	err := c.do(ctx, "playlistItems.list", func(callCtx context.Context) error {
		var err error
		response, err = call.Context(callCtx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &UploadPage{
		Items:         make([]PlaylistEntry, 0, len(response.Items)),
		NextPageToken: response.NextPageToken,
	}
	for _, item := range response.Items {
		if item == nil || item.ContentDetails == nil {
			continue
		}
		page.Items = append(page.Items, PlaylistEntry{
			VideoID:     item.ContentDetails.VideoId,
			PublishedAt: item.ContentDetails.VideoPublishedAt,
		})
	}
	return page, nil
}

func (c *Client) ListVideos(ctx context.Context, ids []string, detailed bool) ([]VideoRecord, error) {
	parts := []string{"statistics"}
	fields := "items(id,statistics(viewCount,likeCount,commentCount))"
	if detailed {
		parts = []string{"statistics", "contentDetails", "snippet"}
		fields = "items(id,snippet(title),statistics(viewCount,likeCount,commentCount),contentDetails(duration))"
	}

	call := c.service.Videos.List(parts).
		Id(ids...).
		Fields(googleapi.Field(fields))

	var response *youtube.VideoListResponse
	err := c.do(ctx, "videos.list", func(callCtx context.Context) error {
		var err error
		response, err = call.Context(callCtx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	records := make([]VideoRecord, 0, len(response.Items))
	for _, item := range response.Items {
		if item == nil || item.Id == "" {
			continue
		}
		record := VideoRecord{ID: item.Id}
		if item.Snippet != nil {
			record.Title = item.Snippet.Title
		}
		if item.Statistics != nil {
			record.Views = item.Statistics.ViewCount
			record.Likes = item.Statistics.LikeCount
			record.Comments = item.Statistics.CommentCount
		}
		if item.ContentDetails != nil {
			record.Duration = item.ContentDetails.Duration
		}
		records = append(records, record)
	}
	return records, nil
}

// do runs one upstream call under the per-call timeout and translates its
// failure into the application error taxonomy.
func (c *Client) do(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return c.translateError(ctx, ctx, op, err)
	}

	if ok, wait := c.breaker.Allow(); !ok {
		return errors.NewAPIError("YouTube API temporarily unavailable.", http.StatusServiceUnavailable, map[string]any{
			"operation":      op,
			"retry_after_ms": wait.Milliseconds(),
		})
	}

	if err := c.quota.Consume(constants.QuotaConfig.ListCallCost); err != nil {
		c.breaker.Release()
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	if err == nil {
		c.breaker.RecordSuccess()
		c.logger.Debug("YouTube API call completed",
			zap.String("operation", op),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	translated := c.translateError(ctx, callCtx, op, err)

	// A 4xx proves the upstream is answering; only 5xx and transport errors
	// count against it.
	var apiErr *errors.APIError
	switch {
	case errors.As(translated, &apiErr) && (apiErr.StatusCode == 0 || apiErr.StatusCode >= 500):
		c.breaker.RecordFailure()
	case apiErr != nil:
		c.breaker.RecordSuccess()
	default:
		c.breaker.Release()
	}

	c.logger.Warn("YouTube API call failed",
		zap.String("operation", op),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(translated))

	return translated
}

func (c *Client) translateError(parent, callCtx context.Context, op string, err error) error {
	if stderrors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	if parent.Err() != nil || stderrors.Is(callCtx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("YouTube API request timed out.", op)
	}

	var gErr *googleapi.Error
	if stderrors.As(err, &gErr) {
		message := gErr.Message
		if message == "" {
			message = "YouTube API request failed."
		}
		apiErr := errors.NewAPIError(message, gErr.Code, map[string]any{"operation": op})
		apiErr.WithCause(err)
		return apiErr
	}

	// transport failure: no upstream status
	apiErr := errors.NewAPIError("YouTube API request failed.", 0, map[string]any{"operation": op})
	apiErr.WithCause(err)
	return apiErr
}

func extractThumbnail(thumbnails *youtube.ThumbnailDetails) string {
	if thumbnails == nil {
		return ""
	}

	if thumbnails.High != nil && thumbnails.High.Url != "" {
		return thumbnails.High.Url
	}
	if thumbnails.Medium != nil && thumbnails.Medium.Url != "" {
		return thumbnails.Medium.Url
	}
	if thumbnails.Default != nil && thumbnails.Default.Url != "" {
		return thumbnails.Default.Url
	}

	return ""
}
