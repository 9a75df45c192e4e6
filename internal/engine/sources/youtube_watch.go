package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// WatchPage is the metadata scraped from a watch page.
type WatchPage struct {
	Title         string
	LengthSeconds int
	player        *innertubePlayerResp
}

// WatchPage downloads and parses the watch page for videoID.
func (c *Client) WatchPage(ctx context.Context, videoID string) (WatchPage, error) {
	body, err := c.fetchWatchPage(ctx, c.baseURL+"/watch?v="+videoID)
	if err != nil {
		return WatchPage{}, fmt.Errorf("watch page: %w", err)
	}
	return parseWatchPage(body)
}

// fetchWatchPage prefers the stealth browser client (Chrome TLS fingerprint)
// and falls back to plain HTTP when none is configured.
func (c *Client) fetchWatchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if c.browser != nil {
		headers := engine.ChromeHeaders()
		headers["accept-language"] = "en-US,en;q=0.9"
		return engine.RetryDo(ctx, c.retry, func() ([]byte, error) {
			data, _, status, err := c.browser.Do(http.MethodGet, pageURL, headers, nil)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("watch page status %d", status)
			}
			return data, nil
		})
	}

	resp, err := engine.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return c.http.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
}

// parseWatchPage reads the title from meta tags and the embedded player
// response from the inline script that assigns it.
func parseWatchPage(body []byte) (WatchPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return WatchPage{}, fmt.Errorf("parse watch page: %w", err)
	}

	var page WatchPage
	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		page.Title = strings.TrimSpace(v)
	}
	if page.Title == "" {
		if v, ok := doc.Find(`meta[name="title"]`).Attr("content"); ok {
			page.Title = strings.TrimSpace(v)
		}
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), "- YouTube"))
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, ytInitialPlayerResponseMarker)
		if idx < 0 {
			return true
		}
		raw := extractJSON([]byte(text[idx+len(ytInitialPlayerResponseMarker):]))
		if raw == nil {
			return true
		}
		var player innertubePlayerResp
		if err := json.Unmarshal(raw, &player); err != nil {
			return true
		}
		page.player = &player
		return false
	})

	if page.player != nil {
		if page.Title == "" {
			page.Title = page.player.title()
		}
		if page.player.VideoDetails != nil {
			page.LengthSeconds, _ = strconv.Atoi(page.player.VideoDetails.LengthSeconds)
		}
	}
	return page, nil
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
