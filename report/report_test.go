package report

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kgweave/kgweave/store"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	summary := Summary{
		FilesProcessed:   3,
		ClustersCreated:  12,
		AnswersCreated:   12,
		QuestionsCreated: 30,
		RelationsCreated: 4,
		Errors:           1,
	}
	interfaces := []store.InterfaceSummary{
		{Interface: store.Interface{Name: "book-01", Description: "Auto-generated interface for book-01"}, ClusterCount: 7},
		{Interface: store.Interface{Name: "playbooks", Description: "Auto-generated interface for playbooks"}, ClusterCount: 5},
	}

	if err := Write(path, summary, interfaces); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Summary", "B3")
	if err != nil {
		t.Fatal(err)
	}
	if got != "12" {
		t.Errorf("clusters_created cell: got %q, want \"12\"", got)
	}

	label, err := f.GetCellValue("Summary", "A8")
	if err != nil {
		t.Fatal(err)
	}
	if label != "errors" {
		t.Errorf("row 8 label: got %q", label)
	}

	name, err := f.GetCellValue("Interfaces", "A2")
	if err != nil {
		t.Fatal(err)
	}
	if name != "book-01" {
		t.Errorf("first interface: got %q", name)
	}
	count, err := f.GetCellValue("Interfaces", "C3")
	if err != nil {
		t.Fatal(err)
	}
	if count != "5" {
		t.Errorf("cluster count cell: got %q", count)
	}
}

func TestWriteNoInterfaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := Write(path, Summary{}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("sheets: %v", sheets)
	}
}
