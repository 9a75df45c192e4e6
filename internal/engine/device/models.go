package device

// ModelRequirement is the VRAM an ASR model size needs.
type ModelRequirement struct {
	Model       string  `json:"model"`
	VRAMGB      float64 `json:"vram_gb"`
	Description string  `json:"description"`
	Fits        bool    `json:"fits"`
}

var asrRequirements = []ModelRequirement{
	{Model: "tiny", VRAMGB: 1, Description: "runs on CPU"},
	{Model: "base", VRAMGB: 2, Description: "entry-level GPU"},
	{Model: "small", VRAMGB: 4, Description: "RTX 2060 or better"},
	{Model: "medium", VRAMGB: 7, Description: "RTX 3060 or better"},
	{Model: "large", VRAMGB: 10, Description: "RTX 3080 / RTX 4070 or better"},
}

// Requirements lists every ASR model size and whether it fits p.
func Requirements(p Profile) []ModelRequirement {
	out := make([]ModelRequirement, len(asrRequirements))
	for i, r := range asrRequirements {
		r.Fits = p.GPUAvailable && p.VRAMGB >= r.VRAMGB
		out[i] = r
	}
	return out
}
