package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/ecobalance/internal/session"
)

// PreferenceStore keeps per-user settings in Redis. Absent keys read as defaults.
type PreferenceStore struct {
	client *redis.Client
}

// NewPreferenceStore constructs a PreferenceStore.
func NewPreferenceStore(client *redis.Client) *PreferenceStore {
	return &PreferenceStore{client: client}
}

func premiumKey(userID string) string { return "user:" + userID + ":premium" }
func themeKey(userID string) string   { return "user:" + userID + ":theme" }

// Get returns the stored preferences for userID.
// Unreadable or unknown values fall back to the defaults.
func (s *PreferenceStore) Get(ctx context.Context, userID string) (session.Preferences, error) {
	prefs := session.Preferences{Theme: session.DefaultTheme}

	vals, err := s.client.MGet(ctx, premiumKey(userID), themeKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return prefs, fmt.Errorf("reading preferences for %s: %w", userID, err)
	}

	if len(vals) == 2 {
		if v, ok := vals[0].(string); ok {
			if premium, err := strconv.ParseBool(v); err == nil {
				prefs.Premium = premium
			}
		}
		if v, ok := vals[1].(string); ok && session.ValidTheme(v) {
			prefs.Theme = v
		}
	}

	return prefs, nil
}

// Session builds the request session for userID from its stored preferences.
func (s *PreferenceStore) Session(ctx context.Context, userID string) (session.Session, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return session.Session{UserID: userID}, err
	}
	return prefs.Session(userID), nil
}

// SetTheme stores the theme for userID.
func (s *PreferenceStore) SetTheme(ctx context.Context, userID, theme string) error {
	if !session.ValidTheme(theme) {
		return fmt.Errorf("unknown theme %q", theme)
	}
	if err := s.client.Set(ctx, themeKey(userID), theme, 0).Err(); err != nil {
		return fmt.Errorf("storing theme for %s: %w", userID, err)
	}
	return nil
}

// SetPremium stores the premium flag for userID.
func (s *PreferenceStore) SetPremium(ctx context.Context, userID string, premium bool) error {
	if err := s.client.Set(ctx, premiumKey(userID), strconv.FormatBool(premium), 0).Err(); err != nil {
		return fmt.Errorf("storing premium flag for %s: %w", userID, err)
	}
	return nil
}
