package asr

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

type fakeRecognizer struct {
	name string
	text string
	err  error
	got  Request
}

func (f *fakeRecognizer) Name() string { return f.name }
func (f *fakeRecognizer) Recognize(_ context.Context, req Request) (string, error) {
	f.got = req
	return f.text, f.err
}

// writeWAV writes a 16 kHz mono 16-bit PCM file of the given length.
func writeWAV(t *testing.T, path string, d time.Duration) {
	t.Helper()
	const sampleRate, channels, bits = 16000, 1, 16
	dataLen := uint32(d.Seconds() * sampleRate * channels * bits / 8)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	le := binary.LittleEndian
	w := func(v any) { require.NoError(t, binary.Write(f, le, v)) }
	_, _ = f.Write([]byte("RIFF"))
	w(uint32(36 + dataLen))
	_, _ = f.Write([]byte("WAVEfmt "))
	w(uint32(16))
	w(uint16(1)) // PCM
	w(uint16(channels))
	w(uint32(sampleRate))
	w(uint32(sampleRate * channels * bits / 8))
	w(uint16(channels * bits / 8))
	w(uint16(bits))
	_, _ = f.Write([]byte("data"))
	w(dataLen)
	_, err = f.Write(make([]byte, dataLen))
	require.NoError(t, err)
}

func TestAudioDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	writeWAV(t, path, 2*time.Second)

	d, err := AudioDuration(path)
	require.NoError(t, err)
	assert.InDelta(t, float64(2*time.Second), float64(d), float64(50*time.Millisecond))

	webm := filepath.Join(dir, "a.webm")
	require.NoError(t, os.WriteFile(webm, []byte("\x1aE\xdf\xa3 not a riff file at all"), 0o644))
	_, err = AudioDuration(webm)
	assert.Error(t, err)

	_, err = AudioDuration(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}

func TestExpectedDuration(t *testing.T) {
	assert.Equal(t, 6*time.Second, ExpectedDuration(time.Minute, "tiny"))
	assert.Equal(t, time.Minute, ExpectedDuration(time.Minute, "large"))
	assert.Equal(t, 18*time.Second, ExpectedDuration(time.Minute, "unknown"))
}

func TestChainFallback(t *testing.T) {
	first := &fakeRecognizer{name: "cli", err: errors.New("model missing")}
	empty := &fakeRecognizer{name: "empty", text: "   "}
	second := &fakeRecognizer{name: "api", text: "  hello from audio  "}
	c := NewChain(first, nil, empty, second)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, "cli,empty,api", c.Name())

	text, err := c.Recognize(context.Background(), Request{Path: "/nope.webm", Model: "base", Language: "ko"})
	require.NoError(t, err)
	assert.Equal(t, "hello from audio", text)
	assert.Equal(t, "ko", second.got.Language)
	assert.Equal(t, "base", first.got.Model)
}

func TestChainAllFail(t *testing.T) {
	c := NewChain(&fakeRecognizer{name: "a", err: errors.New("boom")}, &fakeRecognizer{name: "b"})
	_, err := c.Recognize(context.Background(), Request{Path: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: boom")
	assert.ErrorIs(t, err, ErrEmptyTranscript)

	_, err = NewChain().Recognize(context.Background(), Request{})
	assert.Error(t, err)
}

func TestChainProgress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	writeWAV(t, path, 10*time.Second)

	slow := &slowRecognizer{wait: 40 * time.Millisecond}
	c := NewChain(slow)
	c.interval = 5 * time.Millisecond

	var calls int
	var last int
	text, err := c.Recognize(context.Background(), Request{Path: path, Model: "tiny", Progress: func(p int) {
		calls++
		last = p
	}})
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Greater(t, calls, 0)
	assert.LessOrEqual(t, last, 99)
}

type slowRecognizer struct{ wait time.Duration }

func (s *slowRecognizer) Name() string { return "slow" }
func (s *slowRecognizer) Recognize(ctx context.Context, _ Request) (string, error) {
	select {
	case <-time.After(s.wait):
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestWhisperCLI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ggml-base.bin"), []byte("model"), 0o644))

	var gotName string
	var gotArgs []string
	w := NewWhisperCLI("/usr/local/bin/whisper-cli", dir)
	w.Threads = 4
	w.Run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte("[00:00:00.000 --> 00:00:02.000]  Hello there.\n[00:00:02.000 --> 00:00:04.000]  General Kenobi.\n"), nil
	}

	text, err := w.Recognize(context.Background(), Request{Path: "/tmp/a.wav", Model: "base"})
	require.NoError(t, err)
	assert.Equal(t, "Hello there. General Kenobi.", text)
	assert.Equal(t, "/usr/local/bin/whisper-cli", gotName)
	assert.Equal(t, []string{
		"--model", filepath.Join(dir, "ggml-base.bin"),
		"--threads", "4",
		"--language", "auto",
		"--no-timestamps",
		"--file", "/tmp/a.wav",
	}, gotArgs)

	_, err = w.Recognize(context.Background(), Request{Path: "/tmp/a.wav", Model: "medium"})
	assert.Error(t, err, "missing model file")

	assert.Equal(t, filepath.Join(dir, "ggml-large-v3.bin"), w.ModelPath("large"))
}

func TestWhisperAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "text", r.FormValue("response_format"))
		assert.Equal(t, "en", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "a.webm", hdr.Filename)
		assert.Equal(t, "audio-bytes", string(data))
		_, _ = w.Write([]byte("Transcribed text.\n"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.webm")
	require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0o644))

	w := NewWhisperAPI(srv.URL+"/v1/", "sk-test", "")
	w.HTTP = srv.Client()
	w.Retry = engine.RetryConfig{}
	text, err := w.Recognize(context.Background(), Request{Path: path, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Transcribed text.", text)

	bad := NewWhisperAPI(srv.URL+"/v1", "wrong", "")
	bad.HTTP = srv.Client()
	bad.Retry = engine.RetryConfig{}
	_, err = bad.Recognize(context.Background(), Request{Path: path})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "HTTP 400"))
}
