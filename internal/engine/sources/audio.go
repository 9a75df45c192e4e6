package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// ErrAudioNotFound means the downloader exited cleanly but no file could be located.
var ErrAudioNotFound = errors.New("downloaded audio not found")

// AudioDownloader fetches a video's best audio stream with yt-dlp.
type AudioDownloader struct {
	YtDlp      string // yt-dlp binary
	FFmpeg     string // "" = keep the original container
	ScratchDir string // parent of the per-download temp dir, "" = os.TempDir()
	Run        engine.CommandRunner
}

// NewAudioDownloader reads tool paths from engine.Cfg.
func NewAudioDownloader(ffmpeg string) *AudioDownloader {
	bin := engine.Cfg.YtDlpPath
	if bin == "" {
		bin = "yt-dlp"
	}
	return &AudioDownloader{
		YtDlp:      bin,
		FFmpeg:     ffmpeg,
		ScratchDir: engine.Cfg.ScratchDir,
		Run:        engine.ExecRunner,
	}
}

func (d *AudioDownloader) args(videoID, dir string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-progress",
		"-o", filepath.Join(dir, videoID+".%(ext)s"),
		"--print", "after_move:filepath",
	}
	if d.FFmpeg != "" {
		args = append(args,
			"-x", "--audio-format", "wav",
			"--postprocessor-args", "ffmpeg:-ar 16000 -ac 1",
			"--ffmpeg-location", d.FFmpeg,
		)
	}
	return append(args, WatchURL(videoID))
}

// Download saves the audio into a fresh scratch directory and returns the
// file path and that directory. The caller removes both.
func (d *AudioDownloader) Download(ctx context.Context, videoID string) (path, dir string, err error) {
	dir, err = os.MkdirTemp(d.ScratchDir, "ytsum-"+videoID+"-")
	if err != nil {
		return "", "", fmt.Errorf("scratch dir: %w", err)
	}

	out, err := d.Run(ctx, d.YtDlp, d.args(videoID, dir)...)
	if err != nil {
		return "", dir, fmt.Errorf("yt-dlp: %w", err)
	}

	path, err = locateAudio(dir, videoID, string(out))
	if err != nil {
		return "", dir, err
	}
	slog.Debug("audio downloaded", slog.String("id", videoID), slog.String("path", path),
		slog.Bool("converted", d.FFmpeg != ""))
	return path, dir, nil
}

// locateAudio trusts the path yt-dlp printed when it exists, then falls back to
// the first completed file in dir named after the video. The extension yt-dlp
// picks does not always match the requested format.
func locateAudio(dir, videoID, printed string) (string, error) {
	lines := strings.Split(strings.TrimSpace(printed), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		p := strings.TrimSpace(lines[i])
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list scratch dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, videoID) || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", ErrAudioNotFound
	}
	// Prefer the converted wav when both it and the source container survive.
	sort.Slice(names, func(i, j int) bool {
		wi, wj := filepath.Ext(names[i]) == ".wav", filepath.Ext(names[j]) == ".wav"
		if wi != wj {
			return wi
		}
		return names[i] < names[j]
	})
	return filepath.Join(dir, names[0]), nil
}
