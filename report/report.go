// Package report writes an import summary workbook for operators who want
// the run outcome outside the log stream.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kgweave/kgweave/store"
)

// Summary is the per-run counter set written to the Summary sheet. It
// mirrors the importer's run report.
type Summary struct {
	FilesProcessed    int
	ClustersCreated   int
	AnswersCreated    int
	QuestionsCreated  int
	RelationsCreated  int
	InterfacesCreated int
	Errors            int
}

// Write renders the run summary and the interface membership table into an
// XLSX workbook at path.
func Write(path string, summary Summary, interfaces []store.InterfaceSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	rows := []struct {
		label string
		value int
	}{
		{"files_processed", summary.FilesProcessed},
		{"clusters_created", summary.ClustersCreated},
		{"answers_created", summary.AnswersCreated},
		{"questions_created", summary.QuestionsCreated},
		{"relations_created", summary.RelationsCreated},
		{"interfaces_created", summary.InterfacesCreated},
		{"errors", summary.Errors},
	}

	f.SetCellValue(summarySheet, "A1", "counter")
	f.SetCellValue(summarySheet, "B1", "value")
	for i, row := range rows {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+2), row.label)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+2), row.value)
	}

	const ifaceSheet = "Interfaces"
	if _, err := f.NewSheet(ifaceSheet); err != nil {
		return fmt.Errorf("creating interfaces sheet: %w", err)
	}
	f.SetCellValue(ifaceSheet, "A1", "name")
	f.SetCellValue(ifaceSheet, "B1", "description")
	f.SetCellValue(ifaceSheet, "C1", "clusters")
	for i, iface := range interfaces {
		f.SetCellValue(ifaceSheet, fmt.Sprintf("A%d", i+2), iface.Name)
		f.SetCellValue(ifaceSheet, fmt.Sprintf("B%d", i+2), iface.Description)
		f.SetCellValue(ifaceSheet, fmt.Sprintf("C%d", i+2), iface.ClusterCount)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}
