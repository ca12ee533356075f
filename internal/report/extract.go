package report

import "strings"

// Delimiter separates a label from its value in the model's answer.
const Delimiter = ":"

// Extract parses the model's answer into Fields.
//
// This is lenient extraction, a best-effort heuristic and not a grammar. Every line is trimmed and tested against
// each label in order; the first label for which "label:" is a prefix of the line wins and the rest of the line,
// trimmed, becomes the value. A label that appears on several lines keeps the last value. Labels with no matching
// line are present with an empty value. Malformed answers (missing labels, values spanning lines, labels in the
// middle of a line) degrade to empty values and never cause an error.
func Extract(text string, labels []Label) Fields {
	fields := make(Fields, len(labels))
	for _, l := range labels {
		fields[l.Text] = ""
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, l := range labels {
			prefix := l.Text + Delimiter
			if strings.HasPrefix(line, prefix) {
				fields[l.Text] = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				break
			}
		}
	}
	return fields
}
