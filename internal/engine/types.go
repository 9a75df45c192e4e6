package engine

import "strings"

// --- Transcript types ---

// Segment is one caption line, or the single synthetic segment produced by ASR.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript sources.
const (
	SourceCaptions = "captions"
	SourceASR      = "asr"
)

// Transcript is the ordered caption or speech text of one video.
type Transcript struct {
	VideoID  string    `json:"video_id"`
	Title    string    `json:"title,omitempty"`
	Language string    `json:"language,omitempty"` // caption track language code, empty for ASR auto-detect
	Source   string    `json:"source"`             // captions | asr
	Kind     string    `json:"kind,omitempty"`     // manual | asr (caption track kind)
	Segments []Segment `json:"segments"`
}

// Text joins segments in temporal order on single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ParagraphScore ranks one paragraph against the document centroid.
type ParagraphScore struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// --- Tool inputs ---

// SummarizeInput is the input for youtube_summarize and youtube_hybrid_summarize.
type SummarizeInput struct {
	URL               string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed, shorts)" validate:"required,max=2048"`
	Language          string `json:"language,omitempty" jsonschema:"Summary language: ko, en or auto (default: server config)" validate:"omitempty,oneof=ko en auto"`
	Length            string `json:"length,omitempty" jsonschema:"Summary length band: short, medium, long, auto (default: server config)" validate:"omitempty,oneof=short medium long auto"`
	AllowASR          *bool  `json:"allow_asr,omitempty" jsonschema:"Allow audio download + speech recognition when the video has no captions"`
	Structured        *bool  `json:"structured,omitempty" jsonschema:"Render key points followed by the full summary"`
	IncludeTranscript bool   `json:"include_transcript,omitempty" jsonschema:"Return the original transcript text as well"`
	UseRemote         bool   `json:"use_remote,omitempty" jsonschema:"Hybrid mode only: run a final pass through the remote LLM"`
}

// TranscriptInput is the input for youtube_transcript.
type TranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL" validate:"required,max=2048"`
	AllowASR *bool  `json:"allow_asr,omitempty" jsonschema:"Allow audio download + speech recognition when the video has no captions"`
	Segments bool   `json:"segments,omitempty" jsonschema:"Return timed segments instead of only the joined text"`
}

// HistoryInput is the input for summary_history.
type HistoryInput struct {
	VideoID string `json:"video_id,omitempty" jsonschema:"Only summaries of this video id" validate:"omitempty,len=11"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Max records (default: 20, max: 100)" validate:"omitempty,min=1,max=100"`
}

// DeviceInput is the (empty) input for device_profile.
type DeviceInput struct{}

// --- Tool outputs ---

// SummarizeOutput is the structured output of the summarize tools.
type SummarizeOutput struct {
	VideoID          string `json:"video_id"`
	Title            string `json:"title,omitempty"`
	DetectedLanguage string `json:"detected_language"`
	SummaryLanguage  string `json:"summary_language"`
	TranscriptSource string `json:"transcript_source"`
	Method           string `json:"method"`
	Summary          string `json:"summary"`
	Failed           bool   `json:"failed,omitempty"`
	Filename         string `json:"filename"`
	MIME             string `json:"mime"`
	SavedTo          string `json:"saved_to,omitempty"`

	TranscriptChars int     `json:"transcript_chars"`
	SummaryChars    int     `json:"summary_chars"`
	CompressionPct  float64 `json:"compression_pct"` // share of the transcript removed
	Transcript      string  `json:"transcript,omitempty"`

	// Hybrid mode only.
	ChunkSummaries     []string         `json:"chunk_summaries,omitempty"`
	SelectedParagraphs []ParagraphScore `json:"selected_paragraphs,omitempty"`
	ParagraphCount     int              `json:"paragraph_count,omitempty"`
	SelectedCount      int              `json:"selected_count,omitempty"`
}

// TranscriptOutput is the structured output of youtube_transcript.
type TranscriptOutput struct {
	VideoID          string    `json:"video_id"`
	Title            string    `json:"title,omitempty"`
	Source           string    `json:"source"`
	Language         string    `json:"language,omitempty"`
	DetectedLanguage string    `json:"detected_language"`
	Text             string    `json:"text"`
	Segments         []Segment `json:"segments,omitempty"`
}
