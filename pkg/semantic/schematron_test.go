package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func classifyTest(test string) *ParsedRule {
	return Classify(Rule{ID: "T-1", Context: "p:x", Test: test, App: "All"})
}

func TestClassifyRange(t *testing.T) {
	pr := classifyTest("@cx >= 914400 and @cx <= 51206400")
	require.Equal(t, RuleAttributeValueRange, pr.Type)
	require.Equal(t, "cx", pr.Attribute)
	require.True(t, pr.HasMin)
	require.True(t, pr.HasMax)
	require.Equal(t, 914400.0, pr.MinValue)
	require.Equal(t, 51206400.0, pr.MaxValue)
}

func TestClassifyRangeScientificNotation(t *testing.T) {
	pr := classifyTest("@defaultRowHeight >= 0 and @defaultRowHeight <= 1.7E308")
	require.Equal(t, RuleAttributeValueRange, pr.Type)
	require.Equal(t, 1.7e308, pr.MaxValue)
}

func TestClassifyRangeFloatSuffix(t *testing.T) {
	pr := classifyTest("@val >= -3168f and @val <= 3168f")
	require.Equal(t, RuleAttributeValueRange, pr.Type)
	require.Equal(t, -3168.0, pr.MinValue)
	require.Equal(t, 3168.0, pr.MaxValue)
}

func TestClassifyRangePrefixedAttribute(t *testing.T) {
	pr := classifyTest("@w:percent >= 10 and @w:percent <= 500")
	require.Equal(t, RuleAttributeValueRange, pr.Type)
	require.Equal(t, "w:percent", pr.Attribute)
}

func TestClassifyRangeMismatchedAttributes(t *testing.T) {
	// Different attributes on the two sides is not a range test.
	pr := classifyTest("@a >= 1 and @b <= 2")
	require.NotEqual(t, RuleAttributeValueRange, pr.Type)
}

func TestClassifySingleBounds(t *testing.T) {
	upper := classifyTest("@idx <= 100")
	require.Equal(t, RuleAttributeValueRange, upper.Type)
	require.False(t, upper.HasMin)
	require.True(t, upper.HasMax)

	lower := classifyTest("@idx >= 0")
	require.Equal(t, RuleAttributeValueRange, lower.Type)
	require.True(t, lower.HasMin)
	require.False(t, lower.HasMax)
}

func TestClassifyLength(t *testing.T) {
	pr := classifyTest("string-length(@name) <= 255")
	require.Equal(t, RuleAttributeValueLength, pr.Type)
	require.Equal(t, "name", pr.Attribute)
	require.Equal(t, 255, pr.MaxLength)
	require.Equal(t, -1, pr.MinLength)

	both := classifyTest("string-length(@name) >= 1 and string-length(@name) <= 31")
	require.Equal(t, RuleAttributeValueLength, both.Type)
	require.Equal(t, 1, both.MinLength)
	require.Equal(t, 31, both.MaxLength)
}

func TestClassifyPattern(t *testing.T) {
	pr := classifyTest("matches(@val, '[0-9A-Fa-f]{6}')")
	require.Equal(t, RuleAttributeValuePattern, pr.Type)
	require.Equal(t, "val", pr.Attribute)
	require.Equal(t, "[0-9A-Fa-f]{6}", pr.Pattern)
}

func TestClassifyUnique(t *testing.T) {
	pr := classifyTest("count(distinct-values(../p:sldId/@id)) = count(../p:sldId/@id)")
	require.Equal(t, RuleUniqueAttribute, pr.Type)
	require.Equal(t, "id", pr.Attribute)
}

func TestClassifyRelationshipType(t *testing.T) {
	pr := classifyTest("document(rels)//r:Relationship[@Id = current()/@r:id and @Type = 'http://x/slide']")
	require.Equal(t, RuleRelationshipType, pr.Type)
	require.Equal(t, "r:id", pr.Attribute)
	require.Equal(t, "http://x/slide", pr.RelationshipType)
}

func TestClassifyElementReference(t *testing.T) {
	pr := classifyTest("Index-of(document('Part:/WorkbookPart/TableDefinitionPart'), @id)")
	require.Equal(t, RuleElementReference, pr.Type)
}

func TestClassifyNotEqualAndEqual(t *testing.T) {
	ne := classifyTest("@serverZoom != 0")
	require.Equal(t, RuleAttributeNotEqual, ne.Type)
	require.Equal(t, "0", ne.ForbiddenValue)

	eq := classifyTest("@spt = 19")
	require.Equal(t, RuleAttributeEqual, eq.Type)
	require.Equal(t, "19", eq.ExpectedValue)

	hyphen := classifyTest("@emma:disjunction-type = 'recognition'")
	require.Equal(t, RuleAttributeEqual, hyphen.Type)
	require.Equal(t, "emma:disjunction-type", hyphen.Attribute)
	require.Equal(t, "recognition", hyphen.ExpectedValue)
}

func TestClassifyCompare(t *testing.T) {
	pr := classifyTest("@min <= @max")
	require.Equal(t, RuleAttributeCompare, pr.Type)
	require.Equal(t, "min", pr.Attribute)
	require.Equal(t, "<=", pr.Operator)
	require.Equal(t, "max", pr.OtherAttribute)
}

func TestClassifyOrRespectsParens(t *testing.T) {
	pr := classifyTest("(@a = 1) or (@b = 2 and @c = 3)")
	require.Equal(t, RuleOrCondition, pr.Type)
	require.Len(t, pr.Subs, 2, "parenthesized and-branch stays one branch")
}

func TestClassifyOrOfPresence(t *testing.T) {
	pr := classifyTest("@r:embed or @r:link")
	require.Equal(t, RuleOrCondition, pr.Type)
	require.Len(t, pr.Subs, 2)
	require.Equal(t, RuleAttributesPresent, pr.Subs[0].Type)
	require.Equal(t, []string{"r:embed"}, pr.Subs[0].RequiredAttributes)
}

func TestClassifyAndOfNotEquals(t *testing.T) {
	pr := classifyTest("@xSplit != 'NaN' and @xSplit != 'INF' and @xSplit != '-INF'")
	require.Equal(t, RuleAndCondition, pr.Type)
	require.Len(t, pr.Subs, 3)
	require.Equal(t, RuleAttributeNotEqual, pr.Subs[0].Type)
	require.Equal(t, "NaN", pr.Subs[0].ForbiddenValue)
	require.Equal(t, "-INF", pr.Subs[2].ForbiddenValue)
}

func TestClassifyPresence(t *testing.T) {
	single := classifyTest("@name")
	require.Equal(t, RuleAttributesPresent, single.Type)
	require.Equal(t, []string{"name"}, single.RequiredAttributes)

	multi := classifyTest("@name and @r:id")
	require.Equal(t, RuleAttributesPresent, multi.Type)
	require.Equal(t, []string{"name", "r:id"}, multi.RequiredAttributes)
}

func TestClassifyConditional(t *testing.T) {
	pr := classifyTest("@type and @idx >= 0")
	require.Equal(t, RuleConditionalValue, pr.Type)
	require.Equal(t, "type", pr.Attribute)
	require.Len(t, pr.Subs, 1)
	require.Equal(t, RuleAttributeValueRange, pr.Subs[0].Type)
}

func TestClassifyCrossPartCount(t *testing.T) {
	pr := classifyTest("@cm < count(document('Part:/WorkbookPart/CellMetadataPart')//x:cellMetadata/x:bk) + 1")
	require.Equal(t, RuleCrossPartCount, pr.Type)
	require.Equal(t, "cm", pr.Attribute)
	require.Equal(t, "/WorkbookPart/CellMetadataPart", pr.PartPath)
	require.Equal(t, "x:cellMetadata/x:bk", pr.ElementXPath)
	require.Equal(t, 1, pr.CountOffset)
}

func TestClassifyUnknown(t *testing.T) {
	unknowns := []string{
		"not(preceding-sibling::p:sldId[@id = current()/@id])",
		"count(tokenize(@sqref, ' ')) >= 1",
		"count(w:r) >= count(w:proofErr)",
	}
	for _, test := range unknowns {
		pr := classifyTest(test)
		require.Equal(t, RuleUnknown, pr.Type, "test %q", test)
	}
}

func TestRuleTypeNamesMatchTaxonomy(t *testing.T) {
	want := map[RuleType]string{
		RuleAttributeValueRange: "ATTRIBUTE_VALUE_RANGE",
		RuleUniqueAttribute:     "UNIQUE_ATTRIBUTE",
		RuleAttributeEqual:      "ATTRIBUTE_EQUAL",
		RuleAttributeCompare:    "ATTRIBUTE_COMPARE",
		RuleCrossPartCount:      "CROSS_PART_COUNT",
		RuleUnknown:             "UNKNOWN",
	}
	for typ, name := range want {
		require.Equal(t, name, typ.String())
	}
}
