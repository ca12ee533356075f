package submission

import (
	"log/slog"
	"strings"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/render"
)

// Policy decides which artifacts a submission needs before it is persisted.
type Policy int

const (
	// PolicyAnyArtifact persists the case when at least one of the PDF and the screenshot was generated.
	PolicyAnyArtifact Policy = iota
	// PolicyPDFRequired persists the case only when the PDF was generated.
	PolicyPDFRequired
)

const DefaultPolicy = PolicyAnyArtifact

// ParsePolicy parses the configuration values "any" and "pdf".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return PolicyAnyArtifact, nil
	case "pdf":
		return PolicyPDFRequired, nil
	default:
		return 0, errors.New("unknown persistence policy", slog.String("policy", s))
	}
}

func (p Policy) String() string {
	if p == PolicyPDFRequired {
		return "pdf"
	}
	return "any"
}

func (p Policy) accepts(pdf, page render.Result) bool {
	if p == PolicyPDFRequired {
		return pdf.OK()
	}
	return pdf.OK() || page.OK()
}
