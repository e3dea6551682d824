package summarizer

import (
	"errors"
	"strings"

	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

// InsufficientSentinel anywhere in a reply means the model had nothing to
// summarize.
const InsufficientSentinel = "Insufficient content for summary"

var (
	ErrMissingProduct   = errors.New("product format missing THE_PRODUCT field")
	ErrMissingEditorial = errors.New("editorial format missing required fields")
)

type fields struct {
	format         string
	whatsHappening string
	whyItMatters   string
	bigPicture     string
	theProduct     string
	cost           string
	availability   string
	platforms      string
	quote          *string
}

// ParseReply turns a labelled-line reply into a Summary. Labels match
// case-sensitively at the start of a trimmed line; anything else is ignored.
// A reply that names a format but lacks its required fields is an error,
// never a half-populated summary.
func ParseReply(reply string) (models.Summary, error) {
	if strings.Contains(reply, InsufficientSentinel) {
		return models.InsufficientSummary(), nil
	}

	var f fields
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		f.set(line)
	}

	var product bool
	switch f.format {
	case "PRODUCT":
		product = true
	case "EDITORIAL":
		product = false
	default:
		product = f.theProduct != ""
	}

	if product {
		if f.theProduct == "" {
			return models.Summary{}, ErrMissingProduct
		}
		return models.ProductSummary(models.Product{
			TheProduct:   f.theProduct,
			Cost:         f.cost,
			Availability: f.availability,
			Platforms:    f.platforms,
			Quote:        f.quote,
		}), nil
	}

	if f.whatsHappening == "" || f.whyItMatters == "" {
		return models.Summary{}, ErrMissingEditorial
	}
	return models.EditorialSummary(models.Editorial{
		WhatsHappening: f.whatsHappening,
		WhyItMatters:   f.whyItMatters,
		BigPicture:     f.bigPicture,
		Quote:          f.quote,
	}), nil
}

func (f *fields) set(line string) {
	value := func(label string) (string, bool) {
		v, ok := strings.CutPrefix(line, label)
		return strings.TrimSpace(v), ok
	}

	if v, ok := value("FORMAT:"); ok {
		f.format = strings.ToUpper(v)
	} else if v, ok := value("WHATS_HAPPENING:"); ok {
		f.whatsHappening = v
	} else if v, ok := value("WHY_IT_MATTERS:"); ok {
		f.whyItMatters = v
	} else if v, ok := value("BIG_PICTURE:"); ok {
		f.bigPicture = v
	} else if v, ok := value("THE_PRODUCT:"); ok {
		f.theProduct = v
	} else if v, ok := value("COST:"); ok {
		f.cost = v
	} else if v, ok := value("AVAILABILITY:"); ok {
		f.availability = v
	} else if v, ok := value("PLATFORMS:"); ok {
		f.platforms = v
	} else if v, ok := value("QUOTE:"); ok && v != "" {
		f.quote = &v
	}
}
