package reconcile_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"avaris/internal/model"
	"avaris/internal/reconcile"
	"avaris/internal/sheet"
)

// buildWorkbook 名册在主表 A 列自第 2 行，数据姓名在数据表 C 列自第 6 行
func buildWorkbook(t *testing.T, roster, dataNames []string) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet.PrimarySheet); err != nil {
		t.Fatalf("SetSheetName failed: %v", err)
	}
	if _, err := f.NewSheet(sheet.DataSheet); err != nil {
		t.Fatalf("NewSheet failed: %v", err)
	}
	for i, name := range roster {
		if err := f.SetCellValue(sheet.PrimarySheet, fmt.Sprintf("A%d", 2+i), name); err != nil {
			t.Fatalf("SetCellValue failed: %v", err)
		}
	}
	for i, name := range dataNames {
		if err := f.SetCellValue(sheet.DataSheet, fmt.Sprintf("C%d", sheet.FirstDataRow+i), name); err != nil {
			t.Fatalf("SetCellValue failed: %v", err)
		}
	}
	return f
}

func TestReconcile_ExactMatch(t *testing.T) {
	f := buildWorkbook(t, []string{"Jan Novák", "Petr Svoboda"}, []string{"Jan Novák", "petr  svoboda"})
	defer f.Close()

	engine := reconcile.NewEngine(reconcile.Config{})
	outcome, err := engine.Reconcile(f)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome.Total != 2 || outcome.Exact != 2 {
		t.Fatalf("total=%d exact=%d, want 2/2", outcome.Total, outcome.Exact)
	}
	if outcome.Fuzzy != 0 || outcome.Unmatched != 0 {
		t.Fatalf("fuzzy=%d unmatched=%d", outcome.Fuzzy, outcome.Unmatched)
	}
}

// 阈值边界：差 threshold 个字符是安全模糊匹配，threshold+1 个就不是
func TestReconcile_FuzzyBoundary(t *testing.T) {
	f := buildWorkbook(t,
		[]string{"Jan Novák"},
		[]string{
			"Jan Novak",     // 1 处差异（变音符）
			"Jana Nováková", // 超过 2 处差异
		})
	defer f.Close()

	engine := reconcile.NewEngine(reconcile.Config{MaxDistance: 2})
	outcome, err := engine.Reconcile(f)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if outcome.Fuzzy != 1 || outcome.Unmatched != 1 {
		t.Fatalf("fuzzy=%d unmatched=%d, want 1/1", outcome.Fuzzy, outcome.Unmatched)
	}

	fuzzy := outcome.Matches[0]
	if fuzzy.Kind != model.MatchFuzzy {
		t.Fatalf("kind=%q", fuzzy.Kind)
	}
	if fuzzy.Distance != 1 {
		t.Fatalf("distance=%d, want 1", fuzzy.Distance)
	}
	if fuzzy.Matched != "Jan Novák" {
		t.Fatalf("matched=%q", fuzzy.Matched)
	}

	none := outcome.Matches[1]
	if none.Kind != model.MatchNone {
		t.Fatalf("kind=%q, want none", none.Kind)
	}
}

func TestReconcile_ApplyChanges(t *testing.T) {
	f := buildWorkbook(t, []string{"Jan Novák"}, []string{"Jan Novak"})
	defer f.Close()

	engine := reconcile.NewEngine(reconcile.Config{MaxDistance: 2, ApplyChanges: true})
	outcome, err := engine.Reconcile(f)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome.Applied != 1 {
		t.Fatalf("Applied=%d, want 1", outcome.Applied)
	}

	// 数据表单元格被改写为名册的规范拼写
	v, _ := f.GetCellValue(sheet.DataSheet, fmt.Sprintf("C%d", sheet.FirstDataRow))
	if v != "Jan Novák" {
		t.Fatalf("cell=%q, want canonical spelling", v)
	}
}

func TestReconcile_ExactNeverMutates(t *testing.T) {
	f := buildWorkbook(t, []string{"Jan Novák"}, []string{"JAN NOVÁK"})
	defer f.Close()

	engine := reconcile.NewEngine(reconcile.Config{ApplyChanges: true})
	outcome, err := engine.Reconcile(f)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome.Exact != 1 || outcome.Applied != 0 {
		t.Fatalf("exact=%d applied=%d, want 1/0", outcome.Exact, outcome.Applied)
	}

	v, _ := f.GetCellValue(sheet.DataSheet, fmt.Sprintf("C%d", sheet.FirstDataRow))
	if v != "JAN NOVÁK" {
		t.Fatalf("exact match must not rewrite the cell, got %q", v)
	}
}

// 平手时取名册中先出现的一项
func TestReconcile_TieBreaksByRosterOrder(t *testing.T) {
	f := buildWorkbook(t, []string{"Jan Novák", "Jan Nováč"}, []string{"Jan Nováx"})
	defer f.Close()

	engine := reconcile.NewEngine(reconcile.Config{MaxDistance: 2})
	outcome, err := engine.Reconcile(f)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome.Fuzzy != 1 {
		t.Fatalf("fuzzy=%d, want 1", outcome.Fuzzy)
	}
	// 两个候选编辑距离相同，必须命中名册里靠前的
	if got := outcome.Matches[0].Matched; got != "Jan Novák" {
		t.Fatalf("matched=%q, want first roster entry", got)
	}
}

func TestReconcile_MissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	engine := reconcile.NewEngine(reconcile.Config{})
	if _, err := engine.Reconcile(f); err == nil {
		t.Fatalf("expected error for missing sheets")
	}
}

func TestBuildReport_ListsUnmatched(t *testing.T) {
	f := buildWorkbook(t, []string{"Jan Novák"}, []string{"Jan Novák", "Neznámý Člověk"})
	defer f.Close()

	engine := reconcile.NewEngine(reconcile.Config{})
	outcome, err := engine.Reconcile(f)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	report := reconcile.BuildReport(outcome)
	if !strings.Contains(report, "Neznámý Člověk") {
		t.Fatalf("report must list unmatched names:\n%s", report)
	}
	if !strings.Contains(report, "bez shody 1") {
		t.Fatalf("report must carry aggregate counts:\n%s", report)
	}

	htmlReport := reconcile.BuildReportHTML(outcome)
	if !strings.Contains(htmlReport, "Neznámý Člověk") {
		t.Fatalf("html report must list unmatched names:\n%s", htmlReport)
	}
}
