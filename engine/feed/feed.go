// Package feed resolves the most recent video per channel via the YouTube
// RSS/Atom feed. No API key is required.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	feedURLPrefix = "https://www.youtube.com/feeds/videos.xml?channel_id="
	userAgent     = "signalreel/1.0"

	maxFeedBody = 2 << 20
)

// Channel identifies one configured content channel.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultChannels is the stock finance channel roster.
var DefaultChannels = []Channel{
	{ID: "UClgJyzwGs-GyaNxUHcLZrkg", Name: "InvestAnswers"},
	{ID: "UCqK_GSMbpiV8spgD3ZGloSw", Name: "Coin Bureau"},
	{ID: "UC9ZM3N0ybRtp44-WLqsW3iQ", Name: "Mark Moss"},
	{ID: "UCFU-BE5HRJoudqIz1VDKlhQ", Name: "CTO Larsson"},
	{ID: "UCRvqjQPSeaWn-uEx-w0XOIg", Name: "Benjamin Cowen"},
	{ID: "UCtOV5M-T3GcsJAq8QKaf0lg", Name: "Bitcoin Magazine"},
	{ID: "UCpvyOqtEc86X8w8_Se0t4-w", Name: "George Gammon"},
	{ID: "UCK-zlnUfoDHzUwXcbddtnkg", Name: "ArkInvest"},
}

// VideoRef is the resolved latest video of a channel. Immutable once
// produced; scoped to one pipeline pass.
type VideoRef struct {
	ChannelID   string
	ChannelName string
	VideoID     string
	Title       string
	URL         string
	// Published is YYYY-MM-DD, or empty when the feed omitted it.
	Published string
}

// Resolver finds the latest video for a channel.
type Resolver struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBaseURL overrides the feed endpoint. Used by tests.
func WithBaseURL(prefix string) Option {
	return func(r *Resolver) { r.baseURL = prefix }
}

// NewResolver creates a Resolver. client may be nil.
func NewResolver(client *http.Client, opts ...Option) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	r := &Resolver{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		baseURL: feedURLPrefix,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string     `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// Latest fetches the channel feed and returns its most recently published
// entry. Feeds are normally newest-first, but the publish timestamps decide.
func (r *Resolver) Latest(ctx context.Context, ch Channel) (VideoRef, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return VideoRef{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+ch.ID, nil)
	if err != nil {
		return VideoRef{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return VideoRef{}, fmt.Errorf("fetch feed %s: %w", ch.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VideoRef{}, fmt.Errorf("fetch feed %s: status %d", ch.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return VideoRef{}, fmt.Errorf("read feed %s: %w", ch.ID, err)
	}

	var f atomFeed
	if err := xml.Unmarshal(body, &f); err != nil {
		return VideoRef{}, fmt.Errorf("parse feed %s: %w", ch.ID, err)
	}
	if len(f.Entries) == 0 {
		return VideoRef{}, fmt.Errorf("feed %s: no entries", ch.ID)
	}

	entry := newestEntry(f.Entries)

	ref := VideoRef{
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		VideoID:     entry.VideoID,
		Title:       entry.Title,
		URL:         watchURL(entry),
	}
	if entry.Title == "" {
		ref.Title = "Untitled"
	}
	if len(entry.Published) >= 10 {
		ref.Published = entry.Published[:10]
	}
	return ref, nil
}

func newestEntry(entries []atomEntry) atomEntry {
	best := entries[0]
	bestTime, bestOK := parsePublished(best.Published)
	for _, e := range entries[1:] {
		t, ok := parsePublished(e.Published)
		if ok && (!bestOK || t.After(bestTime)) {
			best, bestTime, bestOK = e, t, true
		}
	}
	return best
}

func parsePublished(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}

func watchURL(e atomEntry) string {
	for _, l := range e.Links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href
		}
	}
	return "https://www.youtube.com/watch?v=" + e.VideoID
}
