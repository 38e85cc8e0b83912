package tools

import (
	"strings"
	"testing"
)

func TestAnalyzeData_Statistics(t *testing.T) {
	tool := NewAnalyzeDataTool()

	args := `{"data":[{"price":10,"region":"eu"},{"price":20,"region":"us"},{"price":30,"region":"eu"}]}`
	result, err := tool.Execute(args)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"Records: 3", "price: count=3 min=10 max=30 mean=20 sum=60"} {
		if !strings.Contains(result, want) {
			t.Errorf("Result missing %q:\n%s", want, result)
		}
	}
}

func TestAnalyzeData_GroupBy(t *testing.T) {
	tool := NewAnalyzeDataTool()

	args := `{"data":[{"region":"eu"},{"region":"us"},{"region":"eu"}],"group_by":"region"}`
	result, err := tool.Execute(args)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(result, "eu: 2") || !strings.Contains(result, "us: 1") {
		t.Errorf("Group counts missing:\n%s", result)
	}
}

func TestAnalyzeData_GroupByMixedValues(t *testing.T) {
	tool := NewAnalyzeDataTool()

	// Numeric group keys count too; records without the field are skipped.
	args := `{"data":[{"year":2025},{"year":2025},{"year":2026},{"other":1}],"group_by":"year"}`
	result, err := tool.Execute(args)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(result, "2025: 2") || !strings.Contains(result, "2026: 1") {
		t.Errorf("Group counts missing:\n%s", result)
	}
}

func TestAnalyzeData_GroupByAbsentField(t *testing.T) {
	tool := NewAnalyzeDataTool()

	result, err := tool.Execute(`{"data":[{"price":10}],"group_by":"region"}`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.Contains(result, "Groups by") {
		t.Errorf("Expected no group section for absent field:\n%s", result)
	}
}

func TestAnalyzeData_UnknownField(t *testing.T) {
	tool := NewAnalyzeDataTool()

	_, err := tool.Execute(`{"data":[{"price":10}],"field":"volume"}`)
	if err == nil {
		t.Fatal("Expected error for non-numeric field")
	}
}

func TestAnalyzeData_Empty(t *testing.T) {
	tool := NewAnalyzeDataTool()

	result, err := tool.Execute(`{"data":[]}`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "No records to analyze." {
		t.Errorf("Result = %q", result)
	}
}

func TestGenerateDataSummary(t *testing.T) {
	tool := NewGenerateDataSummaryTool()

	args := `{"title":"Q3 sales","data":[{"units":5,"region":"eu"},{"units":7,"region":"us"}]}`
	result, err := tool.Execute(args)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"## Q3 sales", "Total records: 2", "region, units", "| units | 2 | 5 | 7 | 6 |"} {
		if !strings.Contains(result, want) {
			t.Errorf("Summary missing %q:\n%s", want, result)
		}
	}
}
