package validate

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/adammathes/ooxmlverify/internal/fixture"
	"github.com/adammathes/ooxmlverify/pkg/binary"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, entries []fixture.Entry) []byte {
	t.Helper()
	data, err := fixture.Build(entries)
	require.NoError(t, err)
	return data
}

func findingIDs(findings []report.Finding) []string {
	var out []string
	for _, f := range findings {
		out = append(out, f.ID)
	}
	return out
}

func errorFindings(findings []report.Finding) []report.Finding {
	var out []report.Finding
	for _, f := range findings {
		if f.Severity == report.Error {
			out = append(out, f)
		}
	}
	return out
}

func TestMinimalValidPresentation(t *testing.T) {
	v := NewDefault()
	r := v.ValidateBytes(build(t, fixture.Minimal()), "minimal.pptx")

	if !r.IsValid() {
		t.Error("minimal presentation should be valid")
		for _, f := range r.Findings {
			t.Logf("  %s", f)
		}
	}
	require.Empty(t, r.Findings, "minimal presentation should produce no findings at all")
}

func TestZeroByteInput(t *testing.T) {
	v := NewDefault()
	r := v.ValidateBytes(nil, "empty.pptx")
	require.Equal(t, []string{"package.not-a-container"}, findingIDs(r.Findings))
	require.False(t, r.IsValid())
}

func TestNotAZip(t *testing.T) {
	v := NewDefault()
	r := v.ValidateBytes([]byte("MZ this is something else entirely"), "weird.pptx")
	require.Equal(t, []string{"package.not-a-container"}, findingIDs(r.Findings))
}

func TestContentTypesWithoutRootRels(t *testing.T) {
	entries := fixture.WithoutEntry(fixture.Minimal(), "_rels/.rels")
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "norels.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1)
	require.Equal(t, "package.missing-required-part", errs[0].ID)
	require.Equal(t, "/_rels/.rels", errs[0].Part)
}

func TestMissingMainDocument(t *testing.T) {
	entries := fixture.WithoutEntry(fixture.Minimal(), "ppt/presentation.xml")
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "nomain.pptx")

	var missing []report.Finding
	for _, f := range r.Findings {
		switch f.Category {
		case report.CategorySchema, report.CategorySemantic:
			t.Errorf("unexpected %s finding: %s", f.Category, f)
		}
		if f.ID == "package.missing-required-part" {
			missing = append(missing, f)
		}
	}
	require.Len(t, missing, 1)
	require.Contains(t, missing[0].Description, "presentation")
}

func TestDanglingSlideRelationship(t *testing.T) {
	rels := strings.Replace(fixture.PresentationRels, "</Relationships>",
		`  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>
</Relationships>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/_rels/presentation.xml.rels", rels)

	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "dangling.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1)
	require.Equal(t, "relationship.dangling", errs[0].ID)
	require.Equal(t, "rId3", errs[0].Node)
	require.Contains(t, errs[0].Description, "/ppt/slides/slide2.xml")
}

func TestOutOfRangeOffset(t *testing.T) {
	slide := strings.Replace(fixture.Slide, `<a:off x="0" y="0"/>`, `<a:off x="9999999999" y="0"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide)

	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "offset.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1)
	require.Equal(t, "schema.value-out-of-range", errs[0].ID)
	require.Equal(t, report.Error, errs[0].Severity)
	require.Contains(t, errs[0].Description, "2147483647", "description carries the literal bound")
	require.Equal(t, "/ppt/slides/slide1.xml", errs[0].Part)
}

func TestDuplicateShapeID(t *testing.T) {
	slide := strings.Replace(fixture.Slide, `<p:cNvPr id="2" name="Title 1"/>`, `<p:cNvPr id="1" name="Title 1"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide)

	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "dupid.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1)
	require.Equal(t, "semantic.unique-violation", errs[0].ID)
	require.Contains(t, errs[0].Description, "rule PPT-0007")
	// The finding lands on the second occurrence: the sp's cNvPr, not the
	// group's.
	require.Contains(t, errs[0].Path, "p:sp[1]")
}

func TestMalformedSlideIsSkippedOthersContinue(t *testing.T) {
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", "<p:sld xmlns:p=")
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "broken.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1, "one malformed-xml finding, remaining parts validate cleanly")
	require.Equal(t, "schema.malformed-xml", errs[0].ID)
	require.Equal(t, "/ppt/slides/slide1.xml", errs[0].Part)
}

func TestDeterminism(t *testing.T) {
	slide := strings.Replace(fixture.Slide, `<a:off x="0" y="0"/>`, `<a:off x="9999999999" y="0"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide)
	data := build(t, entries)

	v := NewDefault()
	first := v.ValidateBytes(data, "same.pptx")
	second := v.ValidateBytes(data, "same.pptx")

	if !reflect.DeepEqual(first.Findings, second.Findings) {
		t.Errorf("runs differ:\n%v\n%v", first.Findings, second.Findings)
	}
}

func TestMonotoneCapping(t *testing.T) {
	// A presentation with several violations in a deterministic order.
	pres := strings.Replace(fixture.Presentation, `<p:sldSz cx="9144000" cy="6858000"/>`,
		`<p:sldSz cx="100" cy="100"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/presentation.xml", pres)
	data := build(t, entries)

	full := New(Options{Format: report.Office2019, MaxErrors: 0, SchemaValidation: true, SemanticValidation: true}).
		ValidateBytes(data, "cap.pptx")
	require.GreaterOrEqual(t, len(full.Findings), 3)

	capped := New(Options{Format: report.Office2019, MaxErrors: 2, SchemaValidation: true, SemanticValidation: true}).
		ValidateBytes(data, "cap.pptx")

	require.Len(t, capped.Findings, 3, "cap plus the truncation record")
	require.Equal(t, full.Findings[:2], capped.Findings[:2], "capping keeps the first k findings unchanged")
	last := capped.Findings[2]
	require.Equal(t, report.Info, last.Severity)
	require.Equal(t, "package.findings-truncated", last.ID)
}

func TestConstraintIsolation(t *testing.T) {
	slide := strings.Replace(fixture.Slide, `<p:cNvPr id="2" name="Title 1"/>`, `<p:cNvPr id="1" name="Title 1"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide)
	data := build(t, entries)

	v := NewDefault()
	full := v.ValidateBytes(data, "iso.pptx")

	trimmed := v.WithCatalog(v.Catalog().WithoutRule("PPT-0007"))
	reduced := trimmed.ValidateBytes(data, "iso.pptx")

	var expected []report.Finding
	for _, f := range full.Findings {
		if strings.Contains(f.Description, "rule PPT-0007") {
			continue
		}
		expected = append(expected, f)
	}
	require.Equal(t, expected, reduced.Findings,
		"removing one constraint removes exactly its findings")
}

var pathSegment = regexp.MustCompile(`^(/[A-Za-z_][A-Za-z0-9._-]*(:[A-Za-z_][A-Za-z0-9._-]*)?\[[1-9][0-9]*\])+$`)

func TestFindingWellFormedness(t *testing.T) {
	// Stack several violations and check every finding's shape.
	slide := strings.Replace(fixture.Slide, `<a:off x="0" y="0"/>`, `<a:off x="9999999999" y="bad"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide)
	entries = fixture.WithEntry(entries, "ppt/presentation.xml",
		strings.Replace(fixture.Presentation, `cx="9144000"`, `cx="1"`, 1))

	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "shapes.pptx")
	require.NotEmpty(t, r.Findings)

	for _, f := range r.Findings {
		require.NotEmpty(t, f.Description, "finding %v", f)
		require.NotEmpty(t, f.Part, "finding %v", f)
		if f.Path != "" {
			require.True(t, pathSegment.MatchString(f.Path), "malformed path %q", f.Path)
		}
	}
}

func TestSchemaToggle(t *testing.T) {
	slide := strings.Replace(fixture.Slide, `<a:off x="0" y="0"/>`, `<a:off x="9999999999" y="0"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide)
	data := build(t, entries)

	noSchema := New(Options{Format: report.Office2019, MaxErrors: 0, SchemaValidation: false, SemanticValidation: true})
	r := noSchema.ValidateBytes(data, "toggle.pptx")
	for _, f := range r.Findings {
		require.NotEqual(t, "schema.value-out-of-range", f.ID)
	}
}

func TestSemanticToggle(t *testing.T) {
	slide := strings.Replace(fixture.Slide, `<p:cNvPr id="2" name="Title 1"/>`, `<p:cNvPr id="1" name="Title 1"/>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide)
	data := build(t, entries)

	noSem := New(Options{Format: report.Office2019, MaxErrors: 0, SchemaValidation: true, SemanticValidation: false})
	r := noSem.ValidateBytes(data, "toggle.pptx")
	for _, f := range r.Findings {
		require.NotEqual(t, report.CategorySemantic, f.Category)
	}
}

func TestUnknownRuleStats(t *testing.T) {
	v := NewDefault()
	stats := v.RuleStats()
	require.Equal(t, 3, stats.Unknown, "the inventory ships three rules outside the grammar")
	require.GreaterOrEqual(t, stats.Coverage(), 0.85)

	// Unknown rules never produce findings.
	r := v.ValidateBytes(build(t, fixture.Minimal()), "minimal.pptx")
	require.Empty(t, r.Findings)
}

func TestSlideMissingLayoutRelationship(t *testing.T) {
	entries := fixture.WithoutEntry(fixture.Minimal(), "ppt/slides/_rels/slide1.xml.rels")
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "nolayout.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1)
	require.Equal(t, "semantic.missing-relationship", errs[0].ID)
	require.Contains(t, errs[0].Description, "slideLayout")
	require.Equal(t, "/ppt/slides/slide1.xml", errs[0].Part)
}

func TestMasterMissingThemeRelationship(t *testing.T) {
	rels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
</Relationships>`
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slideMasters/_rels/slideMaster1.xml.rels", rels)
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "notheme.pptx")

	var found bool
	for _, f := range errorFindings(r.Findings) {
		if f.ID == "semantic.missing-relationship" && strings.Contains(f.Description, "theme") {
			found = true
		}
	}
	require.True(t, found)
}

func TestThemeMissingColorSlot(t *testing.T) {
	theme := strings.Replace(fixture.Theme, "<a:folHlink><a:srgbClr val=\"954F72\"/></a:folHlink>", "", 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/theme/theme1.xml", theme)
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "badtheme.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1)
	require.Equal(t, "schema.min-occurs-violation", errs[0].ID)
	require.Contains(t, errs[0].Description, "folHlink")
}

func TestPresentationMissingSlideMasterList(t *testing.T) {
	pres := strings.Replace(fixture.Presentation,
		"<p:sldMasterIdLst><p:sldMasterId id=\"2147483648\" r:id=\"rId1\"/></p:sldMasterIdLst>", "", 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/presentation.xml", pres)
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "nomaster.pptx")

	var found bool
	for _, f := range errorFindings(r.Findings) {
		if f.ID == "schema.min-occurs-violation" && strings.Contains(f.Description, "slide master") {
			found = true
		}
	}
	require.True(t, found)
}

func TestEscapingRelationshipTarget(t *testing.T) {
	rels := strings.Replace(fixture.SlideRels, `Target="../slideLayouts/slideLayout1.xml"`,
		`Target="../../../outside.xml"`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "ppt/slides/_rels/slide1.xml.rels", rels)
	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "escape.pptx")

	require.Contains(t, findingIDs(r.Findings), "relationship.escape")
}

func TestBinaryPartValidation(t *testing.T) {
	ct := strings.Replace(fixture.ContentTypes, "</Types>",
		`  <Default Extension="png" ContentType="image/png"/>
</Types>`, 1)
	entries := fixture.WithEntry(fixture.Minimal(), "[Content_Types].xml", ct)
	entries = fixture.WithEntry(entries, "ppt/media/image1.png", "this is not a png")

	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "badimage.pptx")

	errs := errorFindings(r.Findings)
	require.Len(t, errs, 1)
	require.Equal(t, "package.invalid-binary-part", errs[0].ID)
	require.Equal(t, "/ppt/media/image1.png", errs[0].Part)
	require.Contains(t, errs[0].Description, "png")

	good := fixture.WithEntry(entries, "ppt/media/image1.png", "\x89PNG\r\n\x1a\nrest of the image")
	r = v.ValidateBytes(build(t, good), "goodimage.pptx")
	require.Empty(t, r.Findings, "a well-formed payload produces no findings")
}

func TestObfuscatedFontUsesFontTableKey(t *testing.T) {
	key := binary.ParseFontKey("{00112233-4455-6677-8899-AABBCCDDEEFF}")
	require.NotNil(t, key)

	font := make([]byte, 64)
	copy(font, []byte{0x00, 0x01, 0x00, 0x00})
	obfuscated := make([]byte, len(font))
	copy(obfuscated, font)
	for i := 0; i < 32; i++ {
		obfuscated[i] ^= key[i%16]
	}

	ct := strings.Replace(fixture.ContentTypes, "</Types>",
		`  <Default Extension="odttf" ContentType="application/vnd.openxmlformats-officedocument.obfuscatedFont"/>
  <Override PartName="/word/fontTable.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.fontTable+xml"/>
</Types>`, 1)
	fontTable := `<w:fonts xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <w:font w:name="Embedded"><w:embedRegular r:id="rId1" w:fontKey="{00112233-4455-6677-8899-AABBCCDDEEFF}"/></w:font>
</w:fonts>`
	fontTableRels := `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/font" Target="fonts/font1.odttf"/>
</Relationships>`

	entries := fixture.WithEntry(fixture.Minimal(), "[Content_Types].xml", ct)
	entries = fixture.WithEntry(entries, "word/fontTable.xml", fontTable)
	entries = fixture.WithEntry(entries, "word/_rels/fontTable.xml.rels", fontTableRels)
	entries = fixture.WithEntry(entries, "word/fonts/font1.odttf", string(obfuscated))

	v := NewDefault()
	r := v.ValidateBytes(build(t, entries), "fontkey.pptx")
	require.Empty(t, r.Findings, "the font table key deobfuscates the payload")

	// Without the font table there is no key, and the payload can only be
	// flagged as unverifiable.
	noTable := fixture.WithoutEntry(entries, "word/fontTable.xml")
	noTable = fixture.WithoutEntry(noTable, "word/_rels/fontTable.xml.rels")
	r = v.ValidateBytes(build(t, noTable), "nokey.pptx")
	require.True(t, r.IsValid())
	require.Equal(t, []string{"package.unverifiable-binary-part"}, findingIDs(r.Findings))
	require.Equal(t, report.Warning, r.Findings[0].Severity)
}

func TestIsValid(t *testing.T) {
	v := NewDefault()
	r := v.ValidateBytes(build(t, fixture.Minimal()), "minimal.pptx")
	require.True(t, r.IsValid())

	bad := v.ValidateBytes(nil, "empty.pptx")
	require.False(t, bad.IsValid())
}
