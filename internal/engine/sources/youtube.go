// Package sources acquires video transcripts.
//
// YouTube support is split across files by responsibility:
//
//	youtube_id.go        video id extraction from URLs
//	youtube_innertube.go Innertube API types, constants, and low-level HTTP primitives
//	youtube_watch.go     watch page fetch and ytInitialPlayerResponse/title parsing
//	youtube_transcript.go caption routes (watch page, engagement panel, ANDROID player)
//	audio.go             yt-dlp audio download for the speech recognition fallback
//	fetcher.go           captions first, then audio + ASR
package sources
