package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	innertubePlayerURL = "https://www.youtube.com/youtubei/v1/player?prettyPrint=false"
	androidVersion     = "19.09.37"
	androidUA          = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"

	maxCaptionBody = 2 << 20
)

// captionTrack is one entry of the player response tracklist.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" marks machine-generated tracks
	Translatable bool   `json:"isTranslatable"`
}

// playerResponse is the subset of the Innertube /player response we read.
type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

func (p *playerResponse) tracks() []captionTrack {
	if p.Captions == nil {
		return nil
	}
	return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

// InnertubeSource is the primary adapter: structured caption tracks via the
// Innertube ANDROID /player endpoint. Preference order: human track in a
// preferred language, machine-generated track in a preferred language, then
// any translatable track auto-translated to the first preferred language.
type InnertubeSource struct {
	client    *http.Client
	limiter   *rate.Limiter
	langs     []string
	playerURL string
}

// NewInnertubeSource creates the primary source. client may be nil.
func NewInnertubeSource(client *http.Client, langs []string) *InnertubeSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if len(langs) == 0 {
		langs = PreferredLangs
	}
	return &InnertubeSource{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		langs:     langs,
		playerURL: innertubePlayerURL,
	}
}

func (s *InnertubeSource) Name() string { return "captions" }

func (s *InnertubeSource) Fetch(ctx context.Context, videoID string) (Result, error) {
	player, err := s.fetchPlayer(ctx, videoID)
	if err != nil {
		return Result{}, err
	}
	tracks := player.tracks()
	if len(tracks) == 0 {
		if ps := player.PlayabilityStatus; ps != nil && ps.Reason != "" {
			return Result{}, fmt.Errorf("%w: %s", ErrNoTranscript, ps.Reason)
		}
		return Result{}, ErrNoTranscript
	}

	// Human track in a preferred language.
	for _, lang := range s.langs {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return s.fetchTrack(ctx, t, false)
			}
		}
	}
	// Machine-generated track in a preferred language.
	for _, lang := range s.langs {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return s.fetchTrack(ctx, t, false)
			}
		}
	}
	// Any track, auto-translated. First non-empty wins.
	for _, t := range tracks {
		if !t.Translatable {
			continue
		}
		res, err := s.fetchTranslated(ctx, t)
		if err == nil && !res.Absent() {
			return res, nil
		}
	}
	return Result{}, ErrNoTranscript
}

func (s *InnertubeSource) fetchPlayer(ctx context.Context, videoID string) (*playerResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"videoId":        videoID,
		"contentCheckOk": true,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":        "ANDROID",
				"clientVersion":     androidVersion,
				"androidSdkVersion": 30,
				"hl":                "en",
				"gl":                "US",
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.playerURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUA)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("innertube player: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("innertube player: status %d", resp.StatusCode)
	}

	var player playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&player); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	return &player, nil
}

func (s *InnertubeSource) fetchTrack(ctx context.Context, t captionTrack, translated bool) (Result, error) {
	text, err := s.fetchTimedText(ctx, t.BaseURL+"&fmt=srv3")
	if err != nil {
		return Result{}, err
	}
	if text == "" {
		return Result{}, ErrNoTranscript
	}
	return Result{Text: text, Lang: t.LanguageCode, Translated: translated}, nil
}

func (s *InnertubeSource) fetchTranslated(ctx context.Context, t captionTrack) (Result, error) {
	text, err := s.fetchTimedText(ctx, t.BaseURL+"&fmt=srv3&tlang="+s.langs[0])
	if err != nil {
		return Result{}, err
	}
	if text == "" {
		return Result{}, ErrNoTranscript
	}
	return Result{Text: text, Lang: t.LanguageCode, Translated: true}, nil
}

func (s *InnertubeSource) fetchTimedText(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", androidUA)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch timedtext: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBody))
	if err != nil {
		return "", err
	}
	text, ok := parseTimedText(body)
	if !ok {
		return "", fmt.Errorf("unrecognized caption XML (%d bytes)", len(body))
	}
	return text, nil
}
