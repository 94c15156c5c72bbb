// Package report turns a variance run's result into files: CSV exports
// of the flagged rows and rollups, and PNG charts of the top groups and
// models.
//
// Percentages cross from internal fractional ratios to human-readable
// x100 values here and nowhere else. Undefined percentages (zero base)
// are written as empty CSV cells and contribute nothing to charts.
//
// Typical usage:
//
//	sink := report.NewSink("reports/2025-10-08")
//	manifest, err := sink.WriteAll(result, cfg.Thresholds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("wrote %d artifacts\n", len(manifest.Files))
package report
