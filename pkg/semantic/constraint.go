// Package semantic applies the constraint catalog compiled from the
// Schematron rule inventory: cross-reference, attribute, and cross-part
// checks that go beyond the content model.
package semantic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// Kind tags the constraint variants. Evaluation is a switch over the tag;
// each arm uses only its own fields.
type Kind int

const (
	KindRange Kind = iota
	KindLength
	KindPattern
	KindEnum
	KindEquals
	KindNotEqual
	KindUnique
	KindReferenceExist
	KindIndexReference
	KindRelationshipExist
	KindRelationshipType
	KindMutualExclusive
	KindRequiredCondition
	KindPresence
	KindAttributeCompare
	KindOr
	KindAnd
	KindConditional
	KindCrossPartCount
)

var kindCodes = map[Kind]string{
	KindRange:             "semantic.out-of-range",
	KindLength:            "semantic.length",
	KindPattern:           "semantic.pattern-mismatch",
	KindEnum:              "semantic.unexpected-value",
	KindEquals:            "semantic.unexpected-value",
	KindNotEqual:          "semantic.forbidden-value",
	KindUnique:            "semantic.unique-violation",
	KindReferenceExist:    "semantic.broken-reference",
	KindIndexReference:    "semantic.index-out-of-range",
	KindRelationshipExist: "semantic.missing-relationship",
	KindRelationshipType:  "semantic.wrong-relationship-type",
	KindMutualExclusive:   "semantic.mutual-exclusion",
	KindRequiredCondition: "semantic.missing-conditional-attribute",
	KindPresence:          "semantic.missing-attribute",
	KindAttributeCompare:  "semantic.attribute-comparison",
	KindOr:                "semantic.condition-failed",
	KindAnd:               "semantic.condition-failed",
	KindConditional:       "semantic.condition-failed",
	KindCrossPartCount:    "semantic.cross-part-count",
}

// Name is a qualified attribute or element name. A zero Space means no
// namespace.
type Name struct {
	Space string
	Local string
}

// IsZero reports whether the name is unset.
func (n Name) IsZero() bool { return n.Space == "" && n.Local == "" }

// Constraint is one tagged semantic check. The zero values of unused fields
// are ignored by the evaluation switch.
type Constraint struct {
	Kind    Kind
	RuleID  string
	Message string

	Attr Name

	Min, Max       float64
	HasMin, HasMax bool

	MinLen, MaxLen int // -1 unset

	Pattern *regexp.Regexp

	// Values: the allowed set for Enum, or a single element for Equals and
	// NotEqual.
	Values []string

	// Other: the right-hand attribute for AttributeCompare, or the
	// condition attribute for RequiredCondition.
	Other Name
	Op    string

	// Attrs: the attribute set for Presence and MutualExclusive.
	Attrs []Name

	// Scope: the ancestor element bounding a Unique check; zero means the
	// whole part.
	Scope Name

	// ReferenceExist target: elements of TargetElem whose TargetAttr value
	// must match.
	TargetElem Name
	TargetAttr Name

	// Path: a slash-separated prefixed element path counted by
	// IndexReference and CrossPartCount.
	Path        string
	PartPath    string
	CountOffset int

	RelType string

	TriggerValue string

	Subs []Constraint
}

// Evaluate applies the constraint to one element, emitting a finding on
// failure.
func (c *Constraint) Evaluate(el *xmltree.Node, ctx *opc.Context) bool {
	return c.eval(el, ctx, true)
}

func (c *Constraint) fail(ctx *opc.Context, emit bool, detail, node string) bool {
	if !emit {
		return false
	}
	desc := detail
	if c.Message != "" {
		desc = c.Message + " (" + detail + ")"
	}
	if c.RuleID != "" {
		desc = "rule " + c.RuleID + ": " + desc
	}
	ctx.Add(report.Finding{
		Category:    report.CategorySemantic,
		Severity:    report.Error,
		Description: desc,
		Path:        ctx.Path(),
		Node:        node,
		ID:          kindCodes[c.Kind],
	})
	return false
}

func attrValue(el *xmltree.Node, n Name) (string, bool) {
	return el.Attr(n.Space, n.Local)
}

func (c *Constraint) eval(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	switch c.Kind {
	case KindRange:
		return c.evalRange(el, ctx, emit)
	case KindLength:
		return c.evalLength(el, ctx, emit)
	case KindPattern:
		return c.evalPattern(el, ctx, emit)
	case KindEnum:
		return c.evalEnum(el, ctx, emit)
	case KindEquals:
		return c.evalEquals(el, ctx, emit)
	case KindNotEqual:
		return c.evalNotEqual(el, ctx, emit)
	case KindUnique:
		return c.evalUnique(el, ctx, emit)
	case KindReferenceExist:
		return c.evalReferenceExist(el, ctx, emit)
	case KindIndexReference:
		return c.evalIndexReference(el, ctx, emit)
	case KindRelationshipExist:
		return c.evalRelationshipExist(el, ctx, emit)
	case KindRelationshipType:
		return c.evalRelationshipType(el, ctx, emit)
	case KindMutualExclusive:
		return c.evalMutualExclusive(el, ctx, emit)
	case KindRequiredCondition:
		return c.evalRequiredCondition(el, ctx, emit)
	case KindPresence:
		return c.evalPresence(el, ctx, emit)
	case KindAttributeCompare:
		return c.evalCompare(el, ctx, emit)
	case KindOr:
		return c.evalOr(el, ctx, emit)
	case KindAnd:
		ok := true
		for i := range c.Subs {
			if !c.Subs[i].eval(el, ctx, emit) {
				ok = false
			}
		}
		return ok
	case KindConditional:
		if _, present := attrValue(el, c.Attr); !present {
			return true
		}
		if len(c.Subs) == 0 {
			return true
		}
		return c.Subs[0].eval(el, ctx, emit)
	case KindCrossPartCount:
		return c.evalCrossPartCount(el, ctx, emit)
	}
	return true
}

func (c *Constraint) evalRange(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok {
		return true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' must be numeric, got '%s'", c.Attr.Local, raw), c.Attr.Local)
	}
	if c.HasMin && v < c.Min {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' value %s is less than minimum %v", c.Attr.Local, raw, c.Min), c.Attr.Local)
	}
	if c.HasMax && v > c.Max {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' value %s exceeds maximum %v", c.Attr.Local, raw, c.Max), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalLength(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok {
		return true
	}
	length := utf8.RuneCountInString(raw)
	if c.MinLen >= 0 && length < c.MinLen {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' length %d is less than minimum %d", c.Attr.Local, length, c.MinLen), c.Attr.Local)
	}
	if c.MaxLen >= 0 && length > c.MaxLen {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' length %d exceeds maximum %d", c.Attr.Local, length, c.MaxLen), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalPattern(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok || c.Pattern == nil {
		return true
	}
	if !c.Pattern.MatchString(raw) {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' value '%s' does not match the required pattern", c.Attr.Local, raw), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalEnum(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok {
		return true
	}
	for _, v := range c.Values {
		if raw == v {
			return true
		}
	}
	return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' value '%s' is not in the allowed set", c.Attr.Local, raw), c.Attr.Local)
}

func (c *Constraint) evalEquals(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok || len(c.Values) == 0 {
		return true
	}
	if raw != c.Values[0] {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' must equal '%s', got '%s'", c.Attr.Local, c.Values[0], raw), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalNotEqual(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok || len(c.Values) == 0 {
		return true
	}
	if raw == c.Values[0] {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' must not equal '%s'", c.Attr.Local, c.Values[0]), c.Attr.Local)
	}
	return true
}

// evalUnique fails on the second and later occurrences of a value within
// the scope, so a duplicate pair yields exactly one finding.
func (c *Constraint) evalUnique(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	val, ok := attrValue(el, c.Attr)
	if !ok {
		return true
	}
	scope := c.scopeRoot(el, ctx)
	if scope == nil {
		return true
	}
	if hasEarlierOccurrence(scope, el, c.Attr, val) {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' value '%s' is not unique", c.Attr.Local, val), c.Attr.Local)
	}
	return true
}

func (c *Constraint) scopeRoot(el *xmltree.Node, ctx *opc.Context) *xmltree.Node {
	if c.Scope.IsZero() {
		root := el
		for root.Parent != nil {
			root = root.Parent
		}
		return root
	}
	for anc := el.Parent; anc != nil; anc = anc.Parent {
		if anc.Is(c.Scope.Space, c.Scope.Local) {
			return anc
		}
	}
	return nil
}

// hasEarlierOccurrence scans the scope in document order for a same-named
// element carrying the same attribute value before el.
func hasEarlierOccurrence(scope, el *xmltree.Node, attr Name, val string) bool {
	found := false
	var walk func(n *xmltree.Node) bool // returns true when el is reached
	walk = func(n *xmltree.Node) bool {
		if n == el {
			return true
		}
		if n.Is(el.Space, el.Local) {
			if v, ok := n.Attr(attr.Space, attr.Local); ok && v == val {
				found = true
			}
		}
		for _, child := range n.Children {
			if walk(child) {
				return true
			}
		}
		return false
	}
	walk(scope)
	return found
}

func (c *Constraint) evalReferenceExist(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	val, ok := attrValue(el, c.Attr)
	if !ok {
		return true
	}
	root := el
	for root.Parent != nil {
		root = root.Parent
	}
	candidates := 0
	matched := false
	root.Walk(func(n *xmltree.Node) {
		if n == el {
			return
		}
		if !c.TargetElem.IsZero() && !n.Is(c.TargetElem.Space, c.TargetElem.Local) {
			return
		}
		if v, ok := n.Attr(c.TargetAttr.Space, c.TargetAttr.Local); ok {
			candidates++
			if v == val {
				matched = true
			}
		}
	})
	if candidates == 0 {
		return true // referenced collaborator absent
	}
	if !matched {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' value '%s' does not reference any element", c.Attr.Local, val), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalIndexReference(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok {
		return true
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' must be an integer, got '%s'", c.Attr.Local, raw), c.Attr.Local)
	}
	root := el
	for root.Parent != nil {
		root = root.Parent
	}
	count := countPath(root, c.Path)
	if count == 0 {
		return true
	}
	if idx < 0 || idx >= count {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' index %d is outside 0..%d", c.Attr.Local, idx, count-1), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalRelationshipExist(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok || raw == "" {
		return true
	}
	part := ctx.Part()
	if part == nil {
		return true
	}
	rel, found := part.Relationships().ByID(raw)
	if !found {
		return c.fail(ctx, emit, fmt.Sprintf("relationship '%s' referenced by '%s' does not exist", raw, c.Attr.Local), c.Attr.Local)
	}
	if c.RelType != "" && rel.Type != c.RelType {
		return c.fail(ctx, emit, fmt.Sprintf("relationship '%s' has type '%s', expected '%s'", raw, rel.Type, c.RelType), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalRelationshipType(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok || raw == "" {
		return true
	}
	part := ctx.Part()
	if part == nil {
		return true
	}
	rel, found := part.Relationships().ByID(raw)
	if !found {
		return true // existence is a separate check
	}
	if rel.Type != c.RelType {
		return c.fail(ctx, emit, fmt.Sprintf("relationship '%s' has type '%s', expected '%s'", raw, rel.Type, c.RelType), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalMutualExclusive(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	var present []string
	for _, n := range c.Attrs {
		if _, ok := attrValue(el, n); ok {
			present = append(present, n.Local)
		}
	}
	if len(present) > 1 {
		return c.fail(ctx, emit, fmt.Sprintf("attributes %s are mutually exclusive", strings.Join(present, ", ")), "")
	}
	return true
}

func (c *Constraint) evalRequiredCondition(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	cond, ok := attrValue(el, c.Other)
	if !ok || cond != c.TriggerValue {
		return true
	}
	if _, ok := attrValue(el, c.Attr); !ok {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' is required when '%s' is '%s'", c.Attr.Local, c.Other.Local, c.TriggerValue), c.Attr.Local)
	}
	return true
}

func (c *Constraint) evalPresence(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	var missing []string
	for _, n := range c.Attrs {
		if _, ok := attrValue(el, n); !ok {
			missing = append(missing, n.Local)
		}
	}
	if len(missing) > 0 {
		return c.fail(ctx, emit, fmt.Sprintf("required attribute(s) missing: %s", strings.Join(missing, ", ")), "")
	}
	return true
}

func (c *Constraint) evalCompare(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	left, okL := attrValue(el, c.Attr)
	right, okR := attrValue(el, c.Other)
	if !okL || !okR {
		return true
	}
	var cmp int
	lf, errL := strconv.ParseFloat(left, 64)
	rf, errR := strconv.ParseFloat(right, 64)
	if errL == nil && errR == nil {
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(left, right)
	}
	ok := true
	switch c.Op {
	case "<":
		ok = cmp < 0
	case "<=":
		ok = cmp <= 0
	case "=":
		ok = cmp == 0
	case ">=":
		ok = cmp >= 0
	case ">":
		ok = cmp > 0
	case "!=":
		ok = cmp != 0
	}
	if !ok {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' (%s) must be %s '%s' (%s)", c.Attr.Local, left, c.Op, c.Other.Local, right), c.Attr.Local)
	}
	return true
}

// evalOr probes each alternative without emitting; only when every branch
// fails does one finding appear.
func (c *Constraint) evalOr(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	if len(c.Subs) == 0 {
		return true
	}
	for i := range c.Subs {
		if c.Subs[i].eval(el, ctx, false) {
			return true
		}
	}
	return c.fail(ctx, emit, "none of the alternative conditions are satisfied", "")
}

func (c *Constraint) evalCrossPartCount(el *xmltree.Node, ctx *opc.Context, emit bool) bool {
	raw, ok := attrValue(el, c.Attr)
	if !ok {
		return true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return c.fail(ctx, emit, fmt.Sprintf("attribute '%s' must be numeric, got '%s'", c.Attr.Local, raw), c.Attr.Local)
	}
	uris := resolvePartURIs(ctx, c.PartPath)
	if len(uris) == 0 {
		return true // unresolved role, skip
	}
	count := 0
	counted := false
	for _, uri := range uris {
		part := ctx.Package.Part(uri)
		root, err := part.XML()
		if err != nil || root == nil {
			continue
		}
		counted = true
		count += countPath(root, c.Path)
	}
	if !counted {
		return true
	}
	limit := count + c.CountOffset
	if v >= float64(limit) {
		return c.fail(ctx, emit,
			fmt.Sprintf("attribute '%s' value %s must be less than %d (count %d from Part:%s)", c.Attr.Local, raw, limit, count, c.PartPath),
			c.Attr.Local)
	}
	return true
}
