package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/asr"
)

type fakeCaptions struct {
	t   engine.Transcript
	err error
}

func (f fakeCaptions) FetchCaptions(context.Context, string, []string) (engine.Transcript, error) {
	return f.t, f.err
}

// fakeAudio writes a file into a fresh dir under root, like yt-dlp would.
type fakeAudio struct {
	root string
	err  error
	path string
	dir  string
}

func (f *fakeAudio) Download(_ context.Context, videoID string) (string, string, error) {
	dir, err := os.MkdirTemp(f.root, "dl-")
	if err != nil {
		return "", "", err
	}
	f.dir = dir
	if f.err != nil {
		return "", dir, f.err
	}
	f.path = filepath.Join(dir, videoID+".wav")
	return f.path, dir, os.WriteFile(f.path, []byte("RIFF"), 0o644)
}

type fakeRecognizer struct {
	text string
	err  error
	got  asr.Request
}

func (f *fakeRecognizer) Name() string { return "fake" }
func (f *fakeRecognizer) Recognize(_ context.Context, req asr.Request) (string, error) {
	f.got = req
	return f.text, f.err
}

func noCaptions(title string) fakeCaptions {
	return fakeCaptions{t: engine.Transcript{Title: title}, err: ErrNoCaptions}
}

func TestFetchCaptionsHit(t *testing.T) {
	rec := &fakeRecognizer{text: "unused"}
	f := &Fetcher{
		Captions: fakeCaptions{t: engine.Transcript{
			Title:    "T",
			Source:   engine.SourceCaptions,
			Segments: []engine.Segment{{Text: "a", Start: 0, Duration: 1}, {Text: "b", Start: 1, Duration: 1}},
		}},
		Audio:      &fakeAudio{root: t.TempDir()},
		Recognizer: rec,
	}
	tr, err := f.Fetch(context.Background(), "abcdefghijk", FetchOptions{AllowASR: true})
	require.NoError(t, err)
	assert.Equal(t, engine.SourceCaptions, tr.Source)
	assert.Equal(t, "abcdefghijk", tr.VideoID)
	assert.Equal(t, "a b", tr.Text())
	assert.Empty(t, rec.got.Path, "recognizer must not run when captions exist")
}

func TestFetchASRDisabled(t *testing.T) {
	audio := &fakeAudio{root: t.TempDir()}
	f := &Fetcher{Captions: noCaptions("Title"), Audio: audio, Recognizer: &fakeRecognizer{text: "x"}}

	tr, err := f.Fetch(context.Background(), "abcdefghijk", FetchOptions{AllowASR: false})
	require.ErrorIs(t, err, ErrTranscriptUnavailable)
	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Reason, "no captions")
	assert.Contains(t, ue.Reason, "audio transcription disabled")
	assert.Equal(t, "Title", tr.Title)
	assert.Empty(t, audio.dir, "no download when ASR is disabled")
}

func TestFetchASRFallback(t *testing.T) {
	audio := &fakeAudio{root: t.TempDir()}
	rec := &fakeRecognizer{text: "  spoken words here  "}
	var percents []int
	f := &Fetcher{
		Captions:   noCaptions("Podcast"),
		Audio:      audio,
		Recognizer: rec,
		ASRModel:   func(context.Context) string { return "small" },
	}

	tr, err := f.Fetch(context.Background(), "abcdefghijk", FetchOptions{
		AllowASR:    true,
		ASRLanguage: "ko",
		Progress:    func(p int) { percents = append(percents, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, engine.SourceASR, tr.Source)
	assert.Equal(t, "Podcast", tr.Title)
	assert.Equal(t, "ko", tr.Language)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, engine.Segment{Text: "spoken words here"}, tr.Segments[0])

	assert.Equal(t, "small", rec.got.Model)
	assert.Equal(t, "ko", rec.got.Language)
	assert.Equal(t, audio.path, rec.got.Path)
	assert.NotNil(t, rec.got.Progress)

	_, statErr := os.Stat(audio.dir)
	assert.True(t, os.IsNotExist(statErr), "scratch dir must be removed")
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name     string
		captions CaptionSource
		audioErr error
		recText  string
		recErr   error
		reason   string
	}{
		{"recognizer fails", noCaptions(""), nil, "", errors.New("model missing"), "speech recognition: model missing"},
		{"empty recognition", noCaptions(""), nil, "   ", nil, "empty transcript"},
		{"download fails", noCaptions(""), errors.New("yt-dlp: exit status 1"), "x", nil, "download audio"},
		{"caption service error", fakeCaptions{err: errors.New("HTTP 429")}, errors.New("blocked"), "", nil, "caption service error: HTTP 429"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio := &fakeAudio{root: t.TempDir(), err: tt.audioErr}
			f := &Fetcher{
				Captions:   tt.captions,
				Audio:      audio,
				Recognizer: &fakeRecognizer{text: tt.recText, err: tt.recErr},
			}
			_, err := f.Fetch(context.Background(), "abcdefghijk", FetchOptions{AllowASR: true})
			require.ErrorIs(t, err, ErrTranscriptUnavailable)
			assert.Contains(t, err.Error(), tt.reason)

			_, statErr := os.Stat(audio.dir)
			assert.True(t, os.IsNotExist(statErr), "scratch dir must be removed")
		})
	}
}

func TestFetchASRNotConfigured(t *testing.T) {
	f := &Fetcher{Captions: noCaptions("")}
	_, err := f.Fetch(context.Background(), "abcdefghijk", FetchOptions{AllowASR: true})
	require.ErrorIs(t, err, ErrTranscriptUnavailable)
	assert.Contains(t, err.Error(), "not configured")
}

func TestRemoveScratchMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	removeScratch(filepath.Join(dir, "a.wav"), dir)
	removeScratch("", "")
}

// stubYtDlp mimics yt-dlp: it writes <id>.<ext> next to the -o template and
// prints the given path.
func stubYtDlp(ext string, printed func(written string) string, got *[]string) engine.CommandRunner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		*got = args
		var tmpl string
		for i, a := range args {
			if a == "-o" && i+1 < len(args) {
				tmpl = args[i+1]
			}
		}
		written := strings.Replace(tmpl, "%(ext)s", ext, 1)
		if err := os.WriteFile(written, []byte("audio"), 0o644); err != nil {
			return nil, err
		}
		return []byte("[info] noise\n" + printed(written) + "\n"), nil
	}
}

func TestAudioDownloaderConvertsWithFFmpeg(t *testing.T) {
	var args []string
	d := &AudioDownloader{
		YtDlp:      "yt-dlp",
		FFmpeg:     "/usr/bin/ffmpeg",
		ScratchDir: t.TempDir(),
		Run:        stubYtDlp("wav", func(w string) string { return w }, &args),
	}
	path, dir, err := d.Download(context.Background(), "abcdefghijk")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abcdefghijk.wav"), path)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-x --audio-format wav")
	assert.Contains(t, joined, "--ffmpeg-location /usr/bin/ffmpeg")
	assert.Equal(t, "https://www.youtube.com/watch?v=abcdefghijk", args[len(args)-1])
}

func TestAudioDownloaderWithoutFFmpeg(t *testing.T) {
	var args []string
	d := &AudioDownloader{
		YtDlp:      "yt-dlp",
		ScratchDir: t.TempDir(),
		// yt-dlp reports a name whose extension does not match the file on disk.
		Run: stubYtDlp("webm", func(w string) string { return strings.TrimSuffix(w, ".webm") + ".m4a" }, &args),
	}
	path, dir, err := d.Download(context.Background(), "abcdefghijk")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abcdefghijk.webm"), path)
	assert.NotContains(t, args, "--audio-format")
}

func TestLocateAudio(t *testing.T) {
	dir := t.TempDir()
	_, err := locateAudio(dir, "abcdefghijk", "")
	assert.ErrorIs(t, err, ErrAudioNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "abcdefghijk.webm.part"), nil, 0o644))
	_, err = locateAudio(dir, "abcdefghijk", "")
	assert.ErrorIs(t, err, ErrAudioNotFound, "partial downloads are ignored")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "abcdefghijk.webm"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abcdefghijk.wav"), nil, 0o644))
	got, err := locateAudio(dir, "abcdefghijk", "/does/not/exist.wav\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abcdefghijk.wav"), got)
}
