package semantic

import (
	"regexp"
	"strconv"
	"strings"
)

// RuleType tags the Schematron rule grammars the classifier recognizes.
type RuleType int

const (
	RuleUnknown RuleType = iota
	RuleAttributeValueRange
	RuleAttributeValueLength
	RuleAttributeValuePattern
	RuleUniqueAttribute
	RuleElementReference
	RuleRelationshipType
	RuleAttributeNotEqual
	RuleAttributeEqual
	RuleAttributesPresent
	RuleAttributeCompare
	RuleAndCondition
	RuleOrCondition
	RuleConditionalValue
	RuleCrossPartCount
)

var ruleTypeNames = map[RuleType]string{
	RuleUnknown:               "UNKNOWN",
	RuleAttributeValueRange:   "ATTRIBUTE_VALUE_RANGE",
	RuleAttributeValueLength:  "ATTRIBUTE_VALUE_LENGTH",
	RuleAttributeValuePattern: "ATTRIBUTE_VALUE_PATTERN",
	RuleUniqueAttribute:       "UNIQUE_ATTRIBUTE",
	RuleElementReference:      "ELEMENT_REFERENCE",
	RuleRelationshipType:      "RELATIONSHIP_TYPE",
	RuleAttributeNotEqual:     "ATTRIBUTE_NOT_EQUAL",
	RuleAttributeEqual:        "ATTRIBUTE_EQUAL",
	RuleAttributesPresent:     "ATTRIBUTES_PRESENT",
	RuleAttributeCompare:      "ATTRIBUTE_COMPARE",
	RuleAndCondition:          "AND_CONDITION",
	RuleOrCondition:           "OR_CONDITION",
	RuleConditionalValue:      "CONDITIONAL_VALUE",
	RuleCrossPartCount:        "CROSS_PART_COUNT",
}

func (t RuleType) String() string { return ruleTypeNames[t] }

// Rule is one entry of the embedded compact rule inventory.
type Rule struct {
	ID      string `json:"Id"`
	Context string `json:"Context"`
	Test    string `json:"Test"`
	Message string `json:"Message"`
	App     string `json:"App"`
}

// ParsedRule is a classified rule with the parameters its grammar
// extracted.
type ParsedRule struct {
	Rule
	Type RuleType

	Attribute            string
	MinValue, MaxValue   float64
	HasMin, HasMax       bool
	MinLength, MaxLength int
	Pattern              string
	RelationshipType     string
	ExpectedValue        string
	ForbiddenValue       string
	OtherAttribute       string
	Operator             string
	RequiredAttributes   []string
	PartPath             string
	ElementXPath         string
	CountOffset          int
	Subs                 []*ParsedRule
}

// Attribute names may carry a namespace prefix; equality tests also allow
// hyphens. Numeric literals include signed decimals, scientific notation,
// and a trailing float suffix.
var (
	reRange       = regexp.MustCompile(`^@([\w:]+)\s*>=?\s*([\d.eE+-]+f?)\s+and\s+@([\w:]+)\s*<=?\s*([\d.eE+-]+f?)`)
	reUpperBound  = regexp.MustCompile(`^@([\w:]+)\s*<=?\s*([\d.eE+-]+f?)$`)
	reLowerBound  = regexp.MustCompile(`^@([\w:]+)\s*>=?\s*([\d.eE+-]+f?)$`)
	reStrlenRange = regexp.MustCompile(`^string-length\(@([\w:]+)\)\s*>=?\s*(\d+)\s+and\s+string-length\(@([\w:]+)\)\s*<=?\s*(\d+)`)
	reStrlenMax   = regexp.MustCompile(`^string-length\(@([\w:]+)\)\s*<=?\s*(\d+)`)
	reStrlenMin   = regexp.MustCompile(`^string-length\(@([\w:]+)\)\s*>=?\s*(\d+)$`)
	rePattern     = regexp.MustCompile(`^matches\(@([\w:]+),\s*['"](.+?)['"]\)`)
	reUniqueAttr  = regexp.MustCompile(`/@([\w:]+)\)`)
	reRelType     = regexp.MustCompile(`@Type\s*=\s*['"](.+?)['"]`)
	reRelAttr     = regexp.MustCompile(`@Id\s*=\s*current\(\)/@([\w:]+)`)
	reNotEqual    = regexp.MustCompile(`^@([\w:]+)\s*!=\s*['"]?([^'"]+?)['"]?$`)
	reEquals      = regexp.MustCompile(`^@([\w:-]+)\s*=\s*['"]?([^'"]+?)['"]?$`)
	reCompare     = regexp.MustCompile(`^@([\w:]+)\s*(<=?|>=?)\s*@([\w:]+)$`)
	reNotEqualLHS = regexp.MustCompile(`^@[\w:]+\s*!=`)
	reSingleAttr  = regexp.MustCompile(`^@([\w:]+)$`)
	reAttrsOnly   = regexp.MustCompile(`^(@[\w:]+)(\s+and\s+@[\w:]+)+$`)
	reAttrRef     = regexp.MustCompile(`@([\w:]+)`)
	reConditional = regexp.MustCompile(`^@([\w:]+)\s+and\s+(.+)$`)
	reCrossPart   = regexp.MustCompile(`^@([\w:]+)\s*<\s*count\(document\(['"]Part:([^'"]+)['"]\)//([^)]+)\)\s*\+\s*(\d+)`)
	reAndSplit    = regexp.MustCompile(`\s+and\s+`)
)

func parseNum(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSuffix(s, "f"), 64)
	return v
}

// Classify assigns a rule one of the closed grammar tags and extracts its
// parameters. Anything outside the grammar is UNKNOWN.
func Classify(r Rule) *ParsedRule {
	pr := &ParsedRule{Rule: r, MinLength: -1, MaxLength: -1}
	classify(pr)
	return pr
}

func classify(pr *ParsedRule) {
	test := pr.Test

	if m := reRange.FindStringSubmatch(test); m != nil && m[1] == m[3] {
		pr.Type = RuleAttributeValueRange
		pr.Attribute = m[1]
		pr.MinValue, pr.HasMin = parseNum(m[2]), true
		pr.MaxValue, pr.HasMax = parseNum(m[4]), true
		return
	}
	if m := reUpperBound.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeValueRange
		pr.Attribute = m[1]
		pr.MaxValue, pr.HasMax = parseNum(m[2]), true
		return
	}
	if m := reLowerBound.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeValueRange
		pr.Attribute = m[1]
		pr.MinValue, pr.HasMin = parseNum(m[2]), true
		return
	}

	if m := reStrlenRange.FindStringSubmatch(test); m != nil && m[1] == m[3] {
		pr.Type = RuleAttributeValueLength
		pr.Attribute = m[1]
		pr.MinLength, _ = strconv.Atoi(m[2])
		pr.MaxLength, _ = strconv.Atoi(m[4])
		return
	}
	if m := reStrlenMax.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeValueLength
		pr.Attribute = m[1]
		pr.MaxLength, _ = strconv.Atoi(m[2])
		return
	}
	if m := reStrlenMin.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeValueLength
		pr.Attribute = m[1]
		pr.MinLength, _ = strconv.Atoi(m[2])
		return
	}

	if m := rePattern.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeValuePattern
		pr.Attribute = m[1]
		pr.Pattern = m[2]
		return
	}

	if strings.Contains(test, "count(distinct-values(") && strings.Contains(test, "= count(") {
		pr.Type = RuleUniqueAttribute
		if m := reUniqueAttr.FindStringSubmatch(test); m != nil {
			pr.Attribute = m[1]
		}
		return
	}

	if strings.Contains(test, "document(rels)") && strings.Contains(test, "r:Relationship") {
		pr.Type = RuleRelationshipType
		if m := reRelType.FindStringSubmatch(test); m != nil {
			pr.RelationshipType = m[1]
		}
		if m := reRelAttr.FindStringSubmatch(test); m != nil {
			pr.Attribute = m[1]
		}
		return
	}

	if strings.Contains(test, "Index-of(document(") || strings.Contains(strings.ToLower(test), "index-of(document(") {
		pr.Type = RuleElementReference
		return
	}

	if m := reNotEqual.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeNotEqual
		pr.Attribute = m[1]
		pr.ForbiddenValue = strings.TrimSpace(m[2])
		return
	}
	if m := reEquals.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeEqual
		pr.Attribute = m[1]
		pr.ExpectedValue = strings.TrimSpace(m[2])
		return
	}
	if m := reCompare.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributeCompare
		pr.Attribute = m[1]
		pr.Operator = m[2]
		pr.OtherAttribute = m[3]
		return
	}

	// Top-level "or" splits respect parenthesis depth so "(a) or (b and c)"
	// is two branches, not three.
	if isTopLevelOr(test) {
		pr.Type = RuleOrCondition
		for _, sub := range splitTopLevelOr(test) {
			child := &ParsedRule{Rule: Rule{Context: pr.Context, Test: strings.TrimSpace(sub), App: pr.App}, MinLength: -1, MaxLength: -1}
			classify(child)
			pr.Subs = append(pr.Subs, child)
		}
		return
	}

	// Multi-way "and" of same-shape inequality tests.
	if strings.Contains(test, " and ") && strings.Contains(test, "@") && strings.Contains(test, "!=") {
		parts := reAndSplit.Split(test, -1)
		if len(parts) >= 2 {
			allNotEqual := true
			for _, part := range parts {
				if !reNotEqualLHS.MatchString(strings.TrimSpace(part)) {
					allNotEqual = false
					break
				}
			}
			if allNotEqual {
				pr.Type = RuleAndCondition
				for _, part := range parts {
					child := &ParsedRule{Rule: Rule{Context: pr.Context, Test: strings.TrimSpace(part), App: pr.App}, MinLength: -1, MaxLength: -1}
					classify(child)
					pr.Subs = append(pr.Subs, child)
				}
				return
			}
		}
	}

	if m := reSingleAttr.FindStringSubmatch(test); m != nil {
		pr.Type = RuleAttributesPresent
		pr.RequiredAttributes = []string{m[1]}
		return
	}
	if reAttrsOnly.MatchString(test) {
		pr.Type = RuleAttributesPresent
		for _, m := range reAttrRef.FindAllStringSubmatch(test, -1) {
			pr.RequiredAttributes = append(pr.RequiredAttributes, m[1])
		}
		return
	}

	if m := reConditional.FindStringSubmatch(test); m != nil {
		pr.Type = RuleConditionalValue
		pr.Attribute = m[1]
		child := &ParsedRule{Rule: Rule{Context: pr.Context, Test: strings.TrimSpace(m[2]), App: pr.App}, MinLength: -1, MaxLength: -1}
		classify(child)
		pr.Subs = append(pr.Subs, child)
		return
	}

	if m := reCrossPart.FindStringSubmatch(test); m != nil {
		pr.Type = RuleCrossPartCount
		pr.Attribute = m[1]
		pr.PartPath = m[2]
		pr.ElementXPath = m[3]
		pr.CountOffset, _ = strconv.Atoi(m[4])
		return
	}

	pr.Type = RuleUnknown
}

func isTopLevelOr(test string) bool {
	depth := 0
	for i := 0; i < len(test); i++ {
		switch test[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(test[i:], " or ") {
				return true
			}
		}
	}
	return false
}

func splitTopLevelOr(test string) []string {
	var parts []string
	depth := 0
	current := strings.Builder{}
	i := 0
	for i < len(test) {
		switch {
		case test[i] == '(':
			depth++
			current.WriteByte(test[i])
			i++
		case test[i] == ')':
			depth--
			current.WriteByte(test[i])
			i++
		case depth == 0 && strings.HasPrefix(test[i:], " or "):
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
			i += 4
		default:
			current.WriteByte(test[i])
			i++
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}
