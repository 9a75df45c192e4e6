package device

import (
	"os"
	"os/exec"
	"runtime"
)

// ffmpegLocations are probed after PATH.
var ffmpegLocations = []string{
	"/usr/bin/ffmpeg",
	"/usr/local/bin/ffmpeg",
	"/opt/homebrew/bin/ffmpeg",
	"/opt/ffmpeg/bin/ffmpeg",
	"/snap/bin/ffmpeg",
	`C:\ffmpeg\bin\ffmpeg.exe`,
	`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
}

// FindFFmpeg returns configured if it exists, else the first ffmpeg on PATH or
// at a well-known location. "" means audio stays in its original container.
func FindFFmpeg(configured string) string {
	if configured != "" {
		if isExecutable(configured) {
			return configured
		}
		if p, err := exec.LookPath(configured); err == nil {
			return p
		}
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p
	}
	for _, p := range ffmpegLocations {
		if isExecutable(p) {
			return p
		}
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode()&0o111 != 0
}
