// Package report holds the near-miss report field set shared by the prompt, the extractor, the HTML forms and both
// renderers. The label text is sent to the model and matched in its answer, so it must not be changed in one
// place only.
package report

// Label is one report field. Text is the Korean label used in the prompt, in the model's answer and in the rendered
// documents. Key is the ASCII name used in HTML forms.
type Label struct {
	Key  string
	Text string
}

// Labels is the ordered field set of a report.
var Labels = []Label{
	{Key: "case_name", Text: "사례명"},
	{Key: "occurred_at", Text: "발생일시"},
	{Key: "location", Text: "발생장소"},
	{Key: "overview", Text: "발생개요"},
	{Key: "equipment", Text: "설비"},
	{Key: "cause", Text: "발생원인"},
	{Key: "expected_damage", Text: "예상피해"},
	{Key: "risk_assessment", Text: "위험성평가"},
	{Key: "prevention", Text: "재발방지대책"},
}

// Fields maps label text to value.
type Fields map[string]string

// Value is a single label and its value, used when order matters.
type Value struct {
	Label
	Value string
}

// Ordered returns the values of f in the order of labels. Labels missing from f get an empty value.
func (f Fields) Ordered(labels []Label) []Value {
	values := make([]Value, len(labels))
	for i, l := range labels {
		values[i] = Value{Label: l, Value: f[l.Text]}
	}
	return values
}

// FromForm builds Fields from form values keyed by [Label.Key].
func FromForm(get func(key string) string, labels []Label) Fields {
	fields := make(Fields, len(labels))
	for _, l := range labels {
		fields[l.Text] = get(l.Key)
	}
	return fields
}
