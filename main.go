package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/validate"
)

const version = "0.1.0"

var (
	formatFlag    string
	outputFlag    string
	maxErrorsFlag int
	noSchemaFlag  bool
	noSemFlag     bool

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:           "ooxmlverify FILE",
	Short:         "Validate Office Open XML documents",
	Long:          "ooxmlverify checks whether an OOXML package (PPTX and friends) will open cleanly, reporting schema, semantic, relationship, and package findings.",
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", string(report.Office2019), "Office version to validate against")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "text", "output format: text, json, or xml")
	rootCmd.Flags().IntVarP(&maxErrorsFlag, "max-errors", "m", 1000, "maximum findings to report (0 for unlimited)")
	rootCmd.Flags().BoolVar(&noSchemaFlag, "no-schema", false, "disable schema validation")
	rootCmd.Flags().BoolVar(&noSemFlag, "no-semantic", false, "disable semantic validation")
}

func run(cmd *cobra.Command, args []string) error {
	format, ok := report.ParseFileFormat(formatFlag)
	if !ok {
		return fmt.Errorf("unknown format %q", formatFlag)
	}

	v := validate.New(validate.Options{
		Format:             format,
		MaxErrors:          maxErrorsFlag,
		SchemaValidation:   !noSchemaFlag,
		SemanticValidation: !noSemFlag,
	})

	r, err := v.Validate(args[0])
	if err != nil {
		return err
	}

	switch outputFlag {
	case "text":
		r.WriteText(os.Stdout)
	case "json":
		if err := r.WriteJSON(os.Stdout); err != nil {
			return err
		}
	case "xml":
		if err := r.WriteXML(os.Stdout); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output format %q", outputFlag)
	}

	if r.ErrorCount() > 0 {
		exitCode = 1
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
	os.Exit(exitCode)
}
