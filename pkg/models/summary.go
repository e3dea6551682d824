package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SummaryKind names the variant a Summary holds.
type SummaryKind string

const (
	KindEditorial    SummaryKind = "Editorial"
	KindProduct      SummaryKind = "Product"
	KindInsufficient SummaryKind = "Insufficient"
	KindFailed       SummaryKind = "Failed"
)

// Editorial is the summary shape for news, policy and analysis pieces.
type Editorial struct {
	WhatsHappening string  `json:"whats_happening"`
	WhyItMatters   string  `json:"why_it_matters"`
	BigPicture     string  `json:"big_picture"`
	Quote          *string `json:"quote"`
}

// Product is the summary shape for articles about a specific product.
type Product struct {
	TheProduct   string  `json:"the_product"`
	Cost         string  `json:"cost"`
	Availability string  `json:"availability"`
	Platforms    string  `json:"platforms"`
	Quote        *string `json:"quote"`
}

// Summary holds exactly one variant. Build it with the constructors below;
// the zero value is Insufficient.
type Summary struct {
	kind      SummaryKind
	editorial *Editorial
	product   *Product
	reason    string
}

func EditorialSummary(e Editorial) Summary {
	return Summary{kind: KindEditorial, editorial: &e}
}

func ProductSummary(p Product) Summary {
	return Summary{kind: KindProduct, product: &p}
}

func InsufficientSummary() Summary {
	return Summary{kind: KindInsufficient}
}

func FailedSummary(reason string) Summary {
	return Summary{kind: KindFailed, reason: reason}
}

// Kind reports which variant is held.
func (s Summary) Kind() SummaryKind {
	if s.kind == "" {
		return KindInsufficient
	}
	return s.kind
}

// Editorial returns the editorial fields when s is an editorial summary.
func (s Summary) Editorial() (Editorial, bool) {
	if s.kind != KindEditorial || s.editorial == nil {
		return Editorial{}, false
	}
	return *s.editorial, true
}

// Product returns the product fields when s is a product summary.
func (s Summary) Product() (Product, bool) {
	if s.kind != KindProduct || s.product == nil {
		return Product{}, false
	}
	return *s.product, true
}

// FailureReason returns the reason for a Failed summary.
func (s Summary) FailureReason() (string, bool) {
	if s.kind != KindFailed {
		return "", false
	}
	return s.reason, true
}

// Usable reports whether the summary carries AI-generated content.
func (s Summary) Usable() bool {
	k := s.Kind()
	return k == KindEditorial || k == KindProduct
}

// Lede is the first sentence-level field of a usable summary, or "".
func (s Summary) Lede() string {
	if e, ok := s.Editorial(); ok {
		return e.WhatsHappening
	}
	if p, ok := s.Product(); ok {
		return p.TheProduct
	}
	return ""
}

func (s Summary) String() string {
	switch s.Kind() {
	case KindEditorial, KindProduct:
		return fmt.Sprintf("%s(%s)", s.Kind(), s.Lede())
	case KindFailed:
		return fmt.Sprintf("Failed(%s)", s.reason)
	}
	return string(KindInsufficient)
}

// MarshalJSON writes the externally tagged form used by story files:
// {"Editorial":{...}}, {"Product":{...}}, "Insufficient" or {"Failed":"reason"}.
func (s Summary) MarshalJSON() ([]byte, error) {
	switch s.Kind() {
	case KindEditorial:
		return json.Marshal(map[string]*Editorial{string(KindEditorial): s.editorial})
	case KindProduct:
		return json.Marshal(map[string]*Product{string(KindProduct): s.product})
	case KindFailed:
		return json.Marshal(map[string]string{string(KindFailed): s.reason})
	}
	return json.Marshal(string(KindInsufficient))
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return err
		}
		if SummaryKind(tag) != KindInsufficient {
			return fmt.Errorf("unknown summary variant %q", tag)
		}
		*s = InsufficientSummary()
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decoding summary: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("summary must hold exactly one variant, got %d", len(tagged))
	}

	for tag, raw := range tagged {
		switch SummaryKind(tag) {
		case KindEditorial:
			var e Editorial
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("decoding editorial summary: %w", err)
			}
			*s = EditorialSummary(e)
		case KindProduct:
			var p Product
			if err := json.Unmarshal(raw, &p); err != nil {
				return fmt.Errorf("decoding product summary: %w", err)
			}
			*s = ProductSummary(p)
		case KindFailed:
			var reason string
			if err := json.Unmarshal(raw, &reason); err != nil {
				return fmt.Errorf("decoding failed summary: %w", err)
			}
			*s = FailedSummary(reason)
		case KindInsufficient:
			*s = InsufficientSummary()
		default:
			return fmt.Errorf("unknown summary variant %q", tag)
		}
	}
	return nil
}
