// Package youtube resolves external video references into course content
// items through the YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

// ErrUnresolvable marks a reference that is malformed or names no video
var ErrUnresolvable = errors.New("video reference cannot be resolved")

var (
	videoIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	isoDurationExpr = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// Resolver looks up title and duration for a video reference
type Resolver struct {
	service *yt.Service
}

// NewResolver builds a resolver from configuration. Extra options are
// appended last so tests can point it at a fake endpoint.
func NewResolver(ctx context.Context, cfg config.YouTubeConfig, opts ...option.ClientOption) (*Resolver, error) {
	clientOpts := []option.ClientOption{}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	return &Resolver{service: service}, nil
}

// Resolve turns a bare id or a watch/short/embed URL into a content item.
// Unknown videos and unparsable references yield ErrUnresolvable; any other
// error is a transport failure.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*models.ContentItem, error) {
	id, ok := ParseVideoID(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvable, ref)
	}

	resp, err := r.service.Videos.List([]string{"snippet", "contentDetails"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list failed: %w", err)
	}

	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil || resp.Items[0].ContentDetails == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvable, id)
	}

	video := resp.Items[0]
	duration, err := FormatDuration(video.ContentDetails.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvable, id, err)
	}

	return &models.ContentItem{
		VideoID:  id,
		Title:    video.Snippet.Title,
		Duration: duration,
	}, nil
}

// ParseVideoID extracts the 11 character video id from ref
func ParseVideoID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if videoIDPattern.MatchString(ref) {
		return ref, true
	}

	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = segments[0]
	case "youtube.com", "youtube-nocookie.com", "music.youtube.com":
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			candidate = u.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "v" || segments[0] == "live"):
			candidate = segments[1]
		}
	}

	if videoIDPattern.MatchString(candidate) {
		return candidate, true
	}
	return "", false
}

// FormatDuration renders an ISO 8601 duration as m:ss, or h:mm:ss from one
// hour up
func FormatDuration(iso string) (string, error) {
	m := isoDurationExpr.FindStringSubmatch(iso)
	if m == nil || iso == "P" || iso == "PT" {
		return "", fmt.Errorf("invalid duration %q", iso)
	}

	part := func(s string) int {
		if s == "" {
			return 0
		}
		n, _ := strconv.Atoi(s)
		return n
	}

	hours := part(m[1])*24 + part(m[2])
	minutes := part(m[3])
	seconds := part(m[4])

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds), nil
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds), nil
}
