package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// YouTube caption fetching, three routes of one strategy:
//  1. watch page ytInitialPlayerResponse → caption track → timedtext XML
//  2. /next → engagement panel → /get_transcript (datacenter IPs)
//  3. ANDROID Innertube /player → caption track → timedtext XML

// ErrNoCaptions means the video has no usable caption track. It is a
// legitimate empty result, not a failure.
var ErrNoCaptions = errors.New("no captions")

// DefaultCaptionLanguages is the caption preference order.
var DefaultCaptionLanguages = []string{"ko", "en"}

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", fmt.Errorf("engagement panel: %w", ErrNoCaptions)
}

// parseTranscriptSegments extracts timed segments from a /get_transcript response.
func parseTranscriptSegments(resp ytGetTranscriptResp) []engine.Segment {
	var out []engine.Segment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range r.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			text := engine.CleanCaption(sb.String())
			if text == "" {
				continue
			}
			start := parseMillis(r.StartMs)
			dur := parseMillis(r.EndMs) - start
			if dur < 0 {
				dur = 0
			}
			out = append(out, engine.Segment{Text: text, Start: start, Duration: dur})
		}
	}
	return out
}

// captionsViaEngagementPanel fetches segments via:
//  1. POST /next → engagementPanels containing the transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
//
// Works from datacenter IPs where /player returns LOGIN_REQUIRED. The panel
// serves the video's default transcript, so language and kind are unknown.
func (c *Client) captionsViaEngagementPanel(ctx context.Context, videoID string) (engine.Transcript, error) {
	visitorData := generateVisitorData()

	nextData, err := c.postInnerTubeWEB(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return engine.Transcript{}, fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return engine.Transcript{}, err
	}

	transcriptData, err := c.postInnerTubeWEB(ctx, ytTranscriptPath, map[string]any{
		"params": token,
		"context": map[string]any{
			"client": ytWebClientCtx{
				ClientName:    "WEB",
				ClientVersion: ytWebVersion,
				VisitorData:   visitorData,
				Hl:            "en",
				Gl:            "US",
			},
		},
	}, visitorData)
	if err != nil {
		return engine.Transcript{}, fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return engine.Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}

	segs := parseTranscriptSegments(transcriptResp)
	if len(segs) == 0 {
		return engine.Transcript{}, fmt.Errorf("engagement panel: %w", ErrNoCaptions)
	}
	return engine.Transcript{VideoID: videoID, Source: engine.SourceCaptions, Segments: segs}, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// langBase strips a region suffix: "en-US" → "en".
func langBase(code string) string {
	code = strings.ToLower(code)
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		return code[:i]
	}
	return code
}

// pickBestTrack walks langs in order and, within each language, prefers a
// manual track over an auto-generated one. Tracks needing a PoToken and
// languages outside langs are never picked.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	for _, lang := range langs {
		var asr *captionTrack
		for i, t := range tracks {
			if needsPoToken(t.BaseURL) || langBase(t.LanguageCode) != lang {
				continue
			}
			if t.Kind != "asr" {
				return t, true
			}
			if asr == nil {
				asr = &tracks[i]
			}
		}
		if asr != nil {
			return *asr, true
		}
	}
	return captionTrack{}, false
}

// fetchTimedText fetches and parses a timedtext XML caption URL into segments.
func (c *Client) fetchTimedText(ctx context.Context, baseURL string) ([]engine.Segment, error) {
	resp, err := engine.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return c.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

func parseTimedText(body []byte) ([]engine.Segment, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("timedtext: empty body: %w", ErrNoCaptions)
	}
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segs := make([]engine.Segment, 0, len(tt.Lines)+len(tt.Body.Paras))
	for _, line := range tt.Lines {
		if text := engine.CleanCaption(line.Text); text != "" {
			segs = append(segs, engine.Segment{Text: text, Start: parseSeconds(line.Start), Duration: parseSeconds(line.Dur)})
		}
	}
	for _, p := range tt.Body.Paras {
		if text := engine.CleanCaption(p.Text); text != "" {
			segs = append(segs, engine.Segment{Text: text, Start: parseMillis(p.T), Duration: parseMillis(p.D)})
		}
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("timedtext: no lines: %w", ErrNoCaptions)
	}
	return segs, nil
}

// captionsFromPlayer picks a track from a player response and downloads it.
func (c *Client) captionsFromPlayer(ctx context.Context, videoID string, player *innertubePlayerResp, langs []string) (engine.Transcript, error) {
	t := engine.Transcript{VideoID: videoID, Title: player.title(), Source: engine.SourceCaptions}
	tracks := player.tracks()
	if len(tracks) == 0 {
		if reason := player.unplayable(); reason != "" {
			return t, fmt.Errorf("unplayable: %s", reason)
		}
		return t, ErrNoCaptions
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return t, fmt.Errorf("no %s track: %w", strings.Join(langs, "/"), ErrNoCaptions)
	}
	segs, err := c.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return t, err
	}
	t.Language = langBase(track.LanguageCode)
	t.Kind = track.kind()
	t.Segments = segs
	return t, nil
}

// captionsViaPlayer uses the ANDROID Innertube /player endpoint.
// Works from non-blocked (residential/cloud) IP addresses.
func (c *Client) captionsViaPlayer(ctx context.Context, videoID string, langs []string) (engine.Transcript, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return engine.Transcript{}, err
	}

	resp, err := engine.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ytPlayerPath+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return c.http.Do(req)
	})
	if err != nil {
		return engine.Transcript{}, fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return engine.Transcript{}, fmt.Errorf("android innertube: HTTP %d", resp.StatusCode)
	}

	var playerResp innertubePlayerResp
	if err := json.NewDecoder(resp.Body).Decode(&playerResp); err != nil {
		return engine.Transcript{}, fmt.Errorf("decode player: %w", err)
	}
	return c.captionsFromPlayer(ctx, videoID, &playerResp, langs)
}

// captionsViaPageScrape reads caption tracks from the watch page's
// ytInitialPlayerResponse.
func (c *Client) captionsViaPageScrape(ctx context.Context, videoID string, langs []string) (engine.Transcript, error) {
	page, err := c.WatchPage(ctx, videoID)
	if err != nil {
		return engine.Transcript{}, err
	}
	if page.player == nil {
		return engine.Transcript{Title: page.Title}, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	t, err := c.captionsFromPlayer(ctx, videoID, page.player, langs)
	if t.Title == "" {
		t.Title = page.Title
	}
	return t, err
}

// FetchCaptions tries every caption route in order and returns the first
// transcript with segments. When no route finds a usable track the error
// wraps ErrNoCaptions; the returned transcript may still carry the title.
func (c *Client) FetchCaptions(ctx context.Context, videoID string, langs []string) (engine.Transcript, error) {
	if len(langs) == 0 {
		langs = DefaultCaptionLanguages
	}
	routes := []struct {
		name string
		fn   func(context.Context) (engine.Transcript, error)
	}{
		{"page", func(ctx context.Context) (engine.Transcript, error) { return c.captionsViaPageScrape(ctx, videoID, langs) }},
		{"engagement", func(ctx context.Context) (engine.Transcript, error) { return c.captionsViaEngagementPanel(ctx, videoID) }},
		{"player", func(ctx context.Context) (engine.Transcript, error) { return c.captionsViaPlayer(ctx, videoID, langs) }},
	}

	var title string
	var errs []error
	noCaptions := false
	for _, r := range routes {
		if err := ctx.Err(); err != nil {
			return engine.Transcript{VideoID: videoID, Title: title}, err
		}
		t, err := r.fn(ctx)
		if title == "" {
			title = t.Title
		}
		if err == nil && len(t.Segments) > 0 {
			t.VideoID = videoID
			if t.Title == "" {
				t.Title = title
			}
			return t, nil
		}
		if err == nil {
			err = ErrNoCaptions
		}
		if errors.Is(err, ErrNoCaptions) {
			noCaptions = true
		}
		slog.Debug("youtube: caption route failed",
			slog.String("route", r.name), slog.String("id", videoID), slog.Any("error", err))
		errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
	}

	partial := engine.Transcript{VideoID: videoID, Title: title, Source: engine.SourceCaptions}
	if noCaptions {
		return partial, fmt.Errorf("%w (%v)", ErrNoCaptions, errors.Join(errs...))
	}
	return partial, errors.Join(errs...)
}
