// Package cache provides the two-tier cache used by the prayer engine: a
// shared Redis store when reachable, falling back to a bounded in-process
// store. All operations are best-effort and never fail the caller.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TTLs for the payload classes the engine caches.
const (
	ProviderTTL  = 24 * time.Hour
	DashboardTTL = 10 * time.Minute
	CalendarTTL  = 5 * time.Minute
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	// DeletePattern removes every key matching pattern (supports a trailing
	// “*” glob) and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) int
}

// Key joins a namespace prefix and its arguments with colons.
func Key(prefix string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, ":")
}

// GeoHash derives a stable hash from coordinates rounded to 4 decimal
// places, so nearby requesters share one provider-response entry.
func GeoHash(lat, lng float64) string {
	rounded := fmt.Sprintf("%.4f,%.4f", lat, lng)
	sum := sha1.Sum([]byte(rounded))
	return hex.EncodeToString(sum[:])[:12]
}

// Key builders for the namespaces the engine uses.

func ProviderKey(userID int, date, method, geoHash string) string {
	return Key("api_prayer_times", userID, date, method, geoHash)
}

func DashboardKey(userID int) string {
	return Key("dashboard_stats", userID)
}

func CalendarKey(userID int, weekStart string) string {
	return Key("weekly_calendar", userID, weekStart)
}

func UserCalendarPattern(userID int) string {
	return Key("weekly_calendar", userID) + ":*"
}

func UserProviderPattern(userID int) string {
	return Key("api_prayer_times", userID) + ":*"
}
