package engine

// SummaryTier is the summarization model loading strategy, ordered from
// smallest footprint to largest.
type SummaryTier int

const (
	TierCPU SummaryTier = iota
	Tier4Bit
	Tier8Bit
	TierFull
	TierRemote
)

var tierNames = [...]string{"cpu", "4bit", "8bit", "full", "remote"}

func (t SummaryTier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// Label is the human-facing description used in the summary method line.
func (t SummaryTier) Label() string {
	switch t {
	case TierRemote:
		return "LLM"
	case TierFull:
		return "Local full precision"
	case Tier8Bit:
		return "Local 8-bit"
	case Tier4Bit:
		return "Local 4-bit"
	default:
		return "Local CPU"
	}
}

// ChunkSize is the largest chunk (in runes) a backend of this tier receives.
// Also used as the reduce threshold.
func (t SummaryTier) ChunkSize() int {
	switch t {
	case TierRemote:
		return 8000
	case TierFull:
		return 3000
	case Tier8Bit:
		return 2000
	case Tier4Bit:
		return 1200
	default:
		return 800
	}
}

// MarshalText renders the tier name in JSON tool output.
func (t SummaryTier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
