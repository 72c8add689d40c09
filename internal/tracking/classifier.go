// Package tracking holds the USPS tracking-number classifier and the client
// for the USPS tracking REST API.
package tracking

import (
	"regexp"
	"strings"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

// uspsPatterns are the recognized USPS tracking number formats. The exact
// definitions are compatibility-critical; they mirror what USPS issues today.
var uspsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{20}$`),                  // 20 digits
	regexp.MustCompile(`^(94|93|92|95)\d{20}$`),     // 22 digits with known prefix
	regexp.MustCompile(`^(9407|9303|9270)\d{17}$`),  // Priority Mail Express
	regexp.MustCompile(`^(EA|EC|CP|RA|RS)\d{9}US$`), // international
}

// Classification is the result of inspecting a raw tracking number.
type Classification struct {
	IsUSPS     bool
	Normalized string
}

// Carrier maps the classification onto the carrier enum stored on packages.
func (c Classification) Carrier() domain.Carrier {
	if c.IsUSPS {
		return domain.CarrierUSPS
	}
	return domain.CarrierOther
}

// Classify strips all whitespace from the raw tracking number, upper-cases it
// and tests it against the known USPS formats. Pure and deterministic.
func Classify(raw string) Classification {
	normalized := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if normalized == "" {
		return Classification{Normalized: normalized}
	}
	for _, pattern := range uspsPatterns {
		if pattern.MatchString(normalized) {
			return Classification{IsUSPS: true, Normalized: normalized}
		}
	}
	return Classification{Normalized: normalized}
}
