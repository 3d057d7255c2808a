package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces per-client request rates and daily quotas using
// fixed windows.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64

	clients map[string]*ClientUsage
}

// ClientUsage tracks one client's consumption in the current windows.
type ClientUsage struct {
	MinuteStart    time.Time
	RequestsMinute int
	HourStart      time.Time
	RequestsHour   int
	DayStart       time.Time
	RequestsDay    int
	BytesDay       int64
}

// NewRateLimiter creates a limiter. A zero limit is not enforced.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		now:               time.Now,
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*ClientUsage),
	}
}

// CheckRateLimit records a request of dataSize bytes from clientID, or
// returns a *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.clients[clientID]
	if u == nil {
		u = &ClientUsage{MinuteStart: now, HourStart: now, DayStart: startOfDay(now)}
		rl.clients[clientID] = u
	}
	rl.roll(u, now)

	if rl.requestsPerMinute > 0 && u.RequestsMinute >= rl.requestsPerMinute {
		return &RateLimitError{Type: "minute", Limit: rl.requestsPerMinute, RetryAfter: u.MinuteStart.Add(time.Minute).Sub(now)}
	}
	if rl.requestsPerHour > 0 && u.RequestsHour >= rl.requestsPerHour {
		return &RateLimitError{Type: "hour", Limit: rl.requestsPerHour, RetryAfter: u.HourStart.Add(time.Hour).Sub(now)}
	}
	resets := u.DayStart.AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && u.RequestsDay >= rl.maxRequestsPerDay {
		return &QuotaExceededError{Type: "requests", Limit: int64(rl.maxRequestsPerDay), Used: int64(u.RequestsDay), Resets: resets}
	}
	if rl.maxDataPerDay > 0 && u.BytesDay+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{Type: "data", Limit: rl.maxDataPerDay, Used: u.BytesDay, Resets: resets}
	}

	u.RequestsMinute++
	u.RequestsHour++
	u.RequestsDay++
	u.BytesDay += dataSize
	return nil
}

func (rl *RateLimiter) roll(u *ClientUsage, now time.Time) {
	if now.Sub(u.MinuteStart) >= time.Minute {
		u.MinuteStart, u.RequestsMinute = now, 0
	}
	if now.Sub(u.HourStart) >= time.Hour {
		u.HourStart, u.RequestsHour = now, 0
	}
	if day := startOfDay(now); day.After(u.DayStart) {
		u.DayStart, u.RequestsDay, u.BytesDay = day, 0, 0
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GetUsage returns a copy of the client's usage.
func (rl *RateLimiter) GetUsage(clientID string) ClientUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if u, ok := rl.clients[clientID]; ok {
		return *u
	}
	return ClientUsage{}
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError represents a daily quota violation.
type QuotaExceededError struct {
	Type   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
