// Package feeds discovers video topics from RSS/Atom feeds. Headlines from
// tech feeds make good pipeline topics; the feed subcommand lists them or
// enqueues them for the worker.
package feeds

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Presets maps friendly names to feed URLs.
var Presets = map[string]string{
	"hn": "https://hnrss.org/newest",
	"tr": "https://www.technologyreview.com/feed/",
	"tc": "https://techcrunch.com/feed/",
	"vg": "https://www.theverge.com/rss/index.xml",
}

// DefaultPreset is used when no feed is named.
const DefaultPreset = "hn"

// Topic is one feed headline offered as a pipeline topic.
type Topic struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// ResolveURL maps a preset name to its URL, or returns the input unchanged
// when it is already a URL.
func ResolveURL(feed string) string {
	if url, ok := Presets[feed]; ok {
		return url
	}
	return feed
}

// PresetNames returns the preset names sorted for display.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch retrieves and parses a feed, returning up to maxCount topics.
func Fetch(feedURL string, maxCount int) ([]Topic, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	count := len(feed.Items)
	if count > maxCount {
		count = maxCount
	}
	topics := make([]Topic, 0, count)
	for i := 0; i < count; i++ {
		item := feed.Items[i]
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		topics = append(topics, Topic{
			Title:       title,
			URL:         item.Link,
			PublishedAt: publishedAt,
		})
	}
	return topics, nil
}
