package report

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to act as a near-miss report writer.
func SystemPrompt(labels []Label) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Text
	}
	return fmt.Sprintf("너는 아차사고 사례를 작성하는 전문가입니다. "+
		"입력된 사고 내용을 바탕으로 %s을 자동으로 작성하세요. "+
		"각 항목은 한 줄로, '항목명: 내용' 형식으로만 답하세요.", strings.Join(names, ", "))
}

// UserPrompt embeds the incident description followed by one "label:" line per label in order.
func UserPrompt(description string, labels []Label) string {
	var b strings.Builder
	b.WriteString("사고 내용: ")
	b.WriteString(description)
	b.WriteString("\n필드를 다음 형식으로 채우세요:\n\n")
	for _, l := range labels {
		b.WriteString(l.Text)
		b.WriteString(Delimiter)
		b.WriteString("\n")
	}
	return b.String()
}
