package engine

import (
	"fmt"
	"strings"
)

// LLM prompt templates: data only, little logic.

// summarySystem is the system prompt for every summarization call.
const summarySystem = `You are an expert at summarizing video transcripts. You summarize accurately and never invent content that is not in the text.`

// summaryPromptKo asks for a detailed, structured Korean summary.
// Args: length hint, text.
const summaryPromptKo = `다음 텍스트를 한국어로 상세하고 구조적으로 요약해주세요.
핵심 내용과 중요한 세부사항을 빠짐없이 정리하고, 원문에 없는 내용은 추가하지 마세요.
요약문만 출력하세요.%s

텍스트:
%s`

// summaryPromptEn asks for a detailed, structured English summary.
// Args: length hint, text.
const summaryPromptEn = `Write a detailed, structured summary of the following text in English.
Cover the main points and the important details, and do not add anything that is not in the text.
Output only the summary.%s

Text:
%s`

// SummarySystemPrompt returns the shared system prompt.
func SummarySystemPrompt() string { return summarySystem }

// SummaryPrompt builds the per-chunk instruction for lang with advisory length budgets.
func SummaryPrompt(lang Language, text string, maxLength, minLength int) string {
	hint := lengthHint(lang, maxLength, minLength)
	if lang == LangKorean {
		return fmt.Sprintf(summaryPromptKo, hint, text)
	}
	return fmt.Sprintf(summaryPromptEn, hint, text)
}

func lengthHint(lang Language, maxLength, minLength int) string {
	if maxLength <= 0 && minLength <= 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n")
	if lang == LangKorean {
		switch {
		case minLength > 0 && maxLength > 0:
			fmt.Fprintf(&sb, "요약은 %d자 이상 %d자 이내로 작성해주세요.", minLength, maxLength)
		case maxLength > 0:
			fmt.Fprintf(&sb, "요약은 %d자 이내로 작성해주세요.", maxLength)
		default:
			fmt.Fprintf(&sb, "요약은 %d자 이상으로 작성해주세요.", minLength)
		}
		return sb.String()
	}
	switch {
	case minLength > 0 && maxLength > 0:
		fmt.Fprintf(&sb, "Keep the summary between %d and %d characters.", minLength, maxLength)
	case maxLength > 0:
		fmt.Fprintf(&sb, "Keep the summary under %d characters.", maxLength)
	default:
		fmt.Fprintf(&sb, "Write at least %d characters.", minLength)
	}
	return sb.String()
}

// Headings used by structured post-processing.
func KeyPointsHeading(lang Language) string {
	if lang == LangKorean {
		return "## 핵심 요약"
	}
	return "## Key Points"
}

func FullSummaryHeading(lang Language) string {
	if lang == LangKorean {
		return "## 전체 요약"
	}
	return "## Full Summary"
}

// StripFences removes markdown code fences from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
