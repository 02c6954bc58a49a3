package constants

import "time"

var CacheTTL = struct {
	FullResult     time.Duration
	DegradedResult time.Duration
}{
	FullResult:     10 * time.Minute, // performance and rank both ok
	DegradedResult: 1 * time.Minute,  // performance unavailable or posting_only
}

var MemoryCacheConfig = struct {
	MaxEntries int
}{
	MaxEntries: 1024,
}

var RateLimitConfig = struct {
	MaxRequests int
	Window      time.Duration
}{
	MaxRequests: 30,
	Window:      60 * time.Second,
}

var TimeoutConfig = struct {
	TotalAnalysis   time.Duration
	UpstreamRequest time.Duration
}{
	TotalAnalysis:   20 * time.Second,
	UpstreamRequest: 6 * time.Second,
}

var IngestionConfig = struct {
	PageSize    int64
	RankCap     int
	RankMinDays int
	RankMaxDays int
}{
	PageSize:    50,
	RankCap:     500,
	RankMinDays: 30,
	RankMaxDays: 90,
}

var BatchConfig = struct {
	MaxIDsPerCall int
	Concurrency   int
}{
	MaxIDsPerCall: 50, // videos.list hard limit
	Concurrency:   4,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 5,
	ResetTimeout:     30 * time.Second,
}

var QuotaConfig = struct {
	DailyLimit    int
	SafetyMargin  int
	ListCallCost  int
	ResetTimezone string
}{
	DailyLimit:    10000,
	SafetyMargin:  500,
	ListCallCost:  1, // channels/playlistItems/videos.list
	ResetTimezone: "America/Los_Angeles",
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	KeyPrefix    string
}{
	ReadyTimeout: 5 * time.Second,
	KeyPrefix:    "density:",
}
