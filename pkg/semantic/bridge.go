package semantic

import (
	_ "embed"
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/adammathes/ooxmlverify/pkg/ns"
)

// rulesJSON is the compact rule inventory distilled from the vendor
// Schematron sources at packaging time.
//
//go:embed rules.json
var rulesJSON []byte

// Stats summarizes one load of the rule inventory.
type Stats struct {
	Total      int
	Classified int // non-UNKNOWN classification
	Built      int // constraints registered in the catalog
	Unknown    int
	ByType     map[string]int
}

// Coverage returns the classified fraction of the inventory.
func (s Stats) Coverage() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Classified) / float64(s.Total)
}

var unknownLogOnce sync.Once

// LoadCatalog parses the embedded inventory, classifies every rule, and
// builds the constraint catalog for the given application scope ("All",
// "PowerPoint", "Word", "Excel"). Unclassifiable rules are counted and
// logged once per process; they never fail the load.
func LoadCatalog(appFilter string) (*Catalog, Stats) {
	var rules []Rule
	if err := json.Unmarshal(rulesJSON, &rules); err != nil {
		log.Printf("schematron: cannot parse embedded rule inventory: %v", err)
		return NewCatalog(), Stats{}
	}
	return buildCatalog(rules, appFilter)
}

func buildCatalog(rules []Rule, appFilter string) (*Catalog, Stats) {
	catalog := NewCatalog()
	stats := Stats{ByType: make(map[string]int)}

	for _, r := range rules {
		stats.Total++
		pr := Classify(r)
		stats.ByType[pr.Type.String()]++
		if pr.Type == RuleUnknown {
			stats.Unknown++
			continue
		}
		stats.Classified++

		if appFilter != "All" && r.App != "All" && r.App != appFilter {
			continue
		}
		tag, ok := resolveContext(r.Context)
		if !ok {
			continue
		}
		con, ok := buildConstraint(pr)
		if !ok {
			continue
		}
		catalog.Register(tag.Space, tag.Local, con)
		stats.Built++
	}

	if stats.Unknown > 0 {
		total, unknown := stats.Total, stats.Unknown
		unknownLogOnce.Do(func() {
			log.Printf("schematron: %d of %d rules not classifiable, skipped", unknown, total)
		})
	}
	return catalog, stats
}

func resolveContext(context string) (Name, bool) {
	i := strings.IndexByte(context, ':')
	if i < 0 {
		return Name{}, false
	}
	uri := ns.URI(context[:i])
	if uri == "" {
		return Name{}, false
	}
	return Name{Space: uri, Local: context[i+1:]}, true
}

// convertXPathPattern maps the XPath regex escapes that Go's regexp does
// not know onto close equivalents. \p{...} classes pass through unchanged.
func convertXPathPattern(pattern string) (*regexp.Regexp, error) {
	converted := strings.ReplaceAll(pattern, `\i`, `[a-zA-Z_:]`)
	converted = strings.ReplaceAll(converted, `\c`, `[a-zA-Z0-9_:.\-]`)
	return regexp.Compile("^(?:" + converted + ")$")
}

// buildConstraint converts a classified rule into a constraint value.
// Returns false when the rule cannot be expressed (and is skipped, like an
// UNKNOWN rule).
func buildConstraint(pr *ParsedRule) (Constraint, bool) {
	base := Constraint{RuleID: pr.ID, Message: pr.Message}
	attr := splitAttrName(pr.Attribute)

	switch pr.Type {
	case RuleAttributeValueRange:
		if pr.Attribute == "" {
			return Constraint{}, false
		}
		base.Kind = KindRange
		base.Attr = attr
		base.Min, base.HasMin = pr.MinValue, pr.HasMin
		base.Max, base.HasMax = pr.MaxValue, pr.HasMax
		return base, true

	case RuleAttributeValueLength:
		if pr.Attribute == "" {
			return Constraint{}, false
		}
		base.Kind = KindLength
		base.Attr = attr
		base.MinLen, base.MaxLen = pr.MinLength, pr.MaxLength
		return base, true

	case RuleAttributeValuePattern:
		if pr.Attribute == "" || pr.Pattern == "" {
			return Constraint{}, false
		}
		compiled, err := convertXPathPattern(pr.Pattern)
		if err != nil {
			return Constraint{}, false
		}
		base.Kind = KindPattern
		base.Attr = attr
		base.Pattern = compiled
		return base, true

	case RuleUniqueAttribute:
		if pr.Attribute == "" {
			return Constraint{}, false
		}
		base.Kind = KindUnique
		base.Attr = attr
		return base, true

	case RuleRelationshipType:
		if pr.Attribute == "" || pr.RelationshipType == "" {
			return Constraint{}, false
		}
		base.Kind = KindRelationshipType
		base.Attr = attr
		base.RelType = pr.RelationshipType
		return base, true

	case RuleElementReference:
		// Needs role-to-part resolution the inventory does not specify.
		return Constraint{}, false

	case RuleAttributeNotEqual:
		if pr.Attribute == "" || pr.ForbiddenValue == "" {
			return Constraint{}, false
		}
		base.Kind = KindNotEqual
		base.Attr = attr
		base.Values = []string{pr.ForbiddenValue}
		return base, true

	case RuleAttributeEqual:
		if pr.Attribute == "" || pr.ExpectedValue == "" {
			return Constraint{}, false
		}
		base.Kind = KindEquals
		base.Attr = attr
		base.Values = []string{pr.ExpectedValue}
		return base, true

	case RuleAttributesPresent:
		if len(pr.RequiredAttributes) == 0 {
			return Constraint{}, false
		}
		base.Kind = KindPresence
		for _, a := range pr.RequiredAttributes {
			base.Attrs = append(base.Attrs, splitAttrName(a))
		}
		return base, true

	case RuleAttributeCompare:
		if pr.Attribute == "" || pr.OtherAttribute == "" || pr.Operator == "" {
			return Constraint{}, false
		}
		base.Kind = KindAttributeCompare
		base.Attr = attr
		base.Other = splitAttrName(pr.OtherAttribute)
		base.Op = pr.Operator
		return base, true

	case RuleOrCondition, RuleAndCondition:
		for _, sub := range pr.Subs {
			if child, ok := buildConstraint(sub); ok {
				child.RuleID = ""
				child.Message = ""
				base.Subs = append(base.Subs, child)
			}
		}
		if len(base.Subs) == 0 {
			return Constraint{}, false
		}
		if pr.Type == RuleOrCondition {
			base.Kind = KindOr
		} else {
			base.Kind = KindAnd
		}
		return base, true

	case RuleConditionalValue:
		if pr.Attribute == "" || len(pr.Subs) == 0 {
			return Constraint{}, false
		}
		child, ok := buildConstraint(pr.Subs[0])
		if !ok {
			return Constraint{}, false
		}
		child.RuleID = ""
		child.Message = ""
		base.Kind = KindConditional
		base.Attr = attr
		base.Subs = []Constraint{child}
		return base, true

	case RuleCrossPartCount:
		if pr.Attribute == "" || pr.PartPath == "" || pr.ElementXPath == "" {
			return Constraint{}, false
		}
		base.Kind = KindCrossPartCount
		base.Attr = attr
		base.PartPath = pr.PartPath
		base.Path = pr.ElementXPath
		base.CountOffset = pr.CountOffset
		return base, true
	}

	return Constraint{}, false
}
