package domain

import (
    "fmt"
    "net/url"
    "strings"
)

// ProfileID is the canonical link of one member profile.
type ProfileID string

func (p ProfileID) String() string { return string(p) }

// ActivityURL returns the link of the profile's activity view.
func (p ProfileID) ActivityURL(path string) string {
    if path == "" {
        return string(p)
    }
    return string(p) + "/" + strings.TrimLeft(path, "/")
}

// ParseProfileID canonicalizes a scraped profile link: query string and
// fragment are dropped and a trailing slash is trimmed.
func ParseProfileID(raw string) (ProfileID, error) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return "", fmt.Errorf("%w: empty profile link", ErrInvalidInput)
    }
    u, err := url.Parse(raw)
    if err != nil {
        return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
    }
    if u.Scheme != "http" && u.Scheme != "https" {
        return "", fmt.Errorf("%w: profile link %q is not absolute", ErrInvalidInput, raw)
    }
    if u.Host == "" {
        return "", fmt.Errorf("%w: profile link %q has no host", ErrInvalidInput, raw)
    }
    u.RawQuery = ""
    u.ForceQuery = false
    u.Fragment = ""
    u.RawFragment = ""
    u.Host = strings.ToLower(u.Host)
    u.Path = strings.TrimRight(u.Path, "/")
    u.RawPath = ""
    return ProfileID(u.String()), nil
}

// ParseProfileIDs parses every link, failing on the first invalid one.
// Duplicates are kept: each input position gets its own outcome.
func ParseProfileIDs(raws []string) ([]ProfileID, error) {
    out := make([]ProfileID, 0, len(raws))
    for i, raw := range raws {
        id, err := ParseProfileID(raw)
        if err != nil {
            return nil, fmt.Errorf("profile %d: %w", i, err)
        }
        out = append(out, id)
    }
    return out, nil
}
