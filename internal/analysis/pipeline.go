package analysis

import (
	"github.com/KaramelBytes/csvinsight-cli/internal/report"
)

// Run validates and loads the CSV at path and builds the result document:
// column summaries, generated_at, and either predictions or predictions_error.
// Validation failures are returned as errors matching IsValidationError; load
// failures are returned as-is.
func Run(path string, opt Options) (*report.Object, error) {
	if err := ValidateInput(path); err != nil {
		return nil, err
	}
	t, err := LoadCSV(path, opt)
	if err != nil {
		return nil, err
	}
	opt.logger().Debug("loaded table", "file", t.Name, "rows", t.Rows, "columns", len(t.Columns))
	return Build(t, opt), nil
}

// Build assembles the result document for a loaded table.
func Build(t *Table, opt Options) *report.Object {
	doc := report.NewObject()
	for _, s := range Summarize(t) {
		doc.Set(s.Column(), s)
	}
	doc.Set("generated_at", report.Timestamp(opt.now()))

	out := Predict(t, opt)
	if out.Err != nil {
		doc.Set("predictions_error", out.Err.Error())
	} else {
		doc.Set("predictions", out.Predictions)
	}
	return doc
}

// AnalyzeFile runs the pipeline and writes the document to
// <outputDir>/<stem>_results.json, returning the document and the written path.
func AnalyzeFile(path, outputDir string, opt Options) (*report.Object, string, error) {
	doc, err := Run(path, opt)
	if err != nil {
		return nil, "", err
	}
	written, err := report.WriteFile(outputDir, path, doc)
	if err != nil {
		return nil, "", err
	}
	opt.logger().Debug("wrote result", "path", written)
	return doc, written, nil
}
