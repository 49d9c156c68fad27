package godog_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/adammathes/ooxmlverify/internal/fixture"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/validate"
)

// featuresDir walks up to the repo root and returns testdata/features.
func featuresDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "testdata", "features")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root (no go.mod)")
		}
		dir = parent
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{featuresDir(t)},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Error("feature suite failed")
	}
}

// scenarioState holds the archive under construction and the resulting
// report for one scenario.
type scenarioState struct {
	archive []byte
	result  *report.Report
}

func (s *scenarioState) setEntries(entries []fixture.Entry) error {
	data, err := fixture.Build(entries)
	if err != nil {
		return err
	}
	s.archive = data
	return nil
}

func (s *scenarioState) aMinimalPackage() error {
	return s.setEntries(fixture.Minimal())
}

func (s *scenarioState) aMinimalPackageWithout(name string) error {
	return s.setEntries(fixture.WithoutEntry(fixture.Minimal(), name))
}

func (s *scenarioState) withDanglingSlideRelationship() error {
	rels := strings.Replace(fixture.PresentationRels, "</Relationships>",
		`  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>
</Relationships>`, 1)
	return s.setEntries(fixture.WithEntry(fixture.Minimal(), "ppt/_rels/presentation.xml.rels", rels))
}

func (s *scenarioState) withSlideOffsetX(x string) error {
	slide := strings.Replace(fixture.Slide, `<a:off x="0" y="0"/>`,
		fmt.Sprintf(`<a:off x="%s" y="0"/>`, x), 1)
	return s.setEntries(fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide))
}

func (s *scenarioState) withDuplicateShapeIDs() error {
	slide := strings.Replace(fixture.Slide, `<p:cNvPr id="2" name="Title 1"/>`,
		`<p:cNvPr id="1" name="Title 1"/>`, 1)
	return s.setEntries(fixture.WithEntry(fixture.Minimal(), "ppt/slides/slide1.xml", slide))
}

func (s *scenarioState) anEmptyInputFile() error {
	s.archive = nil
	return nil
}

func (s *scenarioState) validatePackage() error {
	v := validate.NewDefault()
	s.result = v.ValidateBytes(s.archive, "scenario.pptx")
	return nil
}

func (s *scenarioState) reportIsValid() error {
	if !s.result.IsValid() {
		return fmt.Errorf("report is not valid: %v", s.result.Findings)
	}
	return nil
}

func (s *scenarioState) reportIsNotValid() error {
	if s.result.IsValid() {
		return fmt.Errorf("report is unexpectedly valid")
	}
	return nil
}

func (s *scenarioState) findingIsReported(id string) error {
	for _, f := range s.result.Findings {
		if f.ID == id {
			return nil
		}
	}
	return fmt.Errorf("finding %q not reported; got %v", id, s.result.Findings)
}

func (s *scenarioState) reportHasFindings(n int) error {
	if len(s.result.Findings) != n {
		return fmt.Errorf("finding count = %d, want %d: %v", len(s.result.Findings), n, s.result.Findings)
	}
	return nil
}

func (s *scenarioState) reportHasErrorFindings(n int) error {
	if got := s.result.ErrorCount(); got != n {
		return fmt.Errorf("error count = %d, want %d: %v", got, n, s.result.Findings)
	}
	return nil
}

func initializeScenario(ctx *godog.ScenarioContext) {
	s := &scenarioState{}

	ctx.Step(`^a minimal presentation package$`, s.aMinimalPackage)
	ctx.Step(`^a minimal presentation package without "([^"]+)"$`, s.aMinimalPackageWithout)
	ctx.Step(`^a minimal presentation package with a dangling slide relationship$`, s.withDanglingSlideRelationship)
	ctx.Step(`^a minimal presentation package with slide offset x "([^"]+)"$`, s.withSlideOffsetX)
	ctx.Step(`^a minimal presentation package with duplicate shape ids$`, s.withDuplicateShapeIDs)
	ctx.Step(`^an empty input file$`, s.anEmptyInputFile)
	ctx.Step(`^the package is validated$`, s.validatePackage)
	ctx.Step(`^the report is valid$`, s.reportIsValid)
	ctx.Step(`^the report is not valid$`, s.reportIsNotValid)
	ctx.Step(`^finding "([^"]+)" is reported$`, s.findingIsReported)
	ctx.Step(`^the report has (\d+) findings$`, s.reportHasFindings)
	ctx.Step(`^the report has (\d+) error findings?$`, s.reportHasErrorFindings)
}
