package importer_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"avaris/internal/exporter"
	"avaris/internal/importer"
	"avaris/internal/model"
	"avaris/internal/scraper"
	"avaris/internal/sheet"
)

// fakeCollaborator 以固定文本应答的抓取协作方
type fakeCollaborator struct {
	exports map[string]string // 对象名 -> 导出文本；缺失的对象返回失败
	calls   []string
}

func (f *fakeCollaborator) ScrapeObject(ctx context.Context, object string, rng scraper.DateRange) (string, error) {
	f.calls = append(f.calls, object)
	text, ok := f.exports[object]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrScrapeFailed, object)
	}
	return text, nil
}

func exportFor(names ...string) string {
	out := "Den;Čas načtení;Místo;Typ;Jméno\n"
	for i, n := range names {
		out += fmt.Sprintf("Út;04.02.2025 07:%02d:00;Vrátnice A;ST;%s\n", i, n)
	}
	out += "Út;04.02.2025 07:59:00;Vrátnice A;XX;Cizí Osoba\n"
	return out
}

func TestRunSync_FreshWorkbookPerObject(t *testing.T) {
	collab := &fakeCollaborator{exports: map[string]string{
		"Objekt 1": exportFor("Jan Novák", "Petr Svoboda"),
	}}
	c := importer.NewCoordinator(collab, nil)

	outDir := t.TempDir()
	result, err := c.RunSync(context.Background(), importer.RunOptions{
		Objects:   []string{"Objekt 1"},
		OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("result.Success=false")
	}

	obj := result.Objects[0]
	if obj.RowsTotal != 3 || obj.RowsKept != 2 {
		t.Fatalf("RowsTotal=%d RowsKept=%d, want 3/2", obj.RowsTotal, obj.RowsKept)
	}
	if obj.FilePath == "" || obj.SheetName != sheet.DataSheet {
		t.Fatalf("obj=%+v", obj)
	}

	// 产物中恰好两行数据，自第 6 行起
	f, err := excelize.OpenFile(obj.FilePath)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(sheet.DataSheet, "B6"); v != "04.02.2025 07:00:00" {
		t.Fatalf("B6=%q", v)
	}
	if v, _ := f.GetCellValue(sheet.DataSheet, "B7"); v != "04.02.2025 07:01:00" {
		t.Fatalf("B7=%q", v)
	}
	if v, _ := f.GetCellValue(sheet.DataSheet, "B8"); v != "" {
		t.Fatalf("B8=%q, expected exactly two data rows", v)
	}
}

// 批次部分失败：3 个对象中第 2 个抓取失败，其余继续，整体仍算成功
func TestRunSync_PartialFailure(t *testing.T) {
	collab := &fakeCollaborator{exports: map[string]string{
		"Objekt 1": exportFor("Jan Novák"),
		"Objekt 3": exportFor("Petr Svoboda"),
	}}
	c := importer.NewCoordinator(collab, nil)

	result, err := c.RunSync(context.Background(), importer.RunOptions{
		Objects:   []string{"Objekt 1", "Objekt 2", "Objekt 3"},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}

	if !result.Success {
		t.Fatalf("batch with one failed object must still succeed")
	}
	if len(result.Objects) != 3 {
		t.Fatalf("len(Objects)=%d, want 3", len(result.Objects))
	}
	statuses := []model.ObjectStatus{model.ObjectSuccess, model.ObjectFailed, model.ObjectSuccess}
	for i, want := range statuses {
		if result.Objects[i].Status != want {
			t.Fatalf("Objects[%d].Status=%q, want %q", i, result.Objects[i].Status, want)
		}
	}
	if result.Objects[1].Error == "" {
		t.Fatalf("failed object must carry an error message")
	}

	// 处理顺序与调用方列表一致
	wantCalls := []string{"Objekt 1", "Objekt 2", "Objekt 3"}
	for i, w := range wantCalls {
		if collab.calls[i] != w {
			t.Fatalf("calls=%v", collab.calls)
		}
	}
}

func TestRunSync_AllFailed(t *testing.T) {
	collab := &fakeCollaborator{exports: map[string]string{}}
	c := importer.NewCoordinator(collab, nil)

	result, err := c.RunSync(context.Background(), importer.RunOptions{
		Objects:   []string{"Objekt 1", "Objekt 2"},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if result.Success {
		t.Fatalf("zero successes must be overall failure")
	}
}

func TestRunSync_NoObjects(t *testing.T) {
	c := importer.NewCoordinator(&fakeCollaborator{}, nil)
	if _, err := c.RunSync(context.Background(), importer.RunOptions{}); !errors.Is(err, model.ErrNoObjects) {
		t.Fatalf("err=%v, want ErrNoObjects", err)
	}
}

// 目标文件流程：多对象的保留记录合并成一份，对目标只执行一次增量合并
func TestRunSync_TargetMergeCombinesObjects(t *testing.T) {
	target := filepath.Join(t.TempDir(), "target.xlsx")
	w := exporter.NewWriter()
	if _, err := w.WriteFresh(nil, target); err != nil {
		t.Fatalf("WriteFresh failed: %v", err)
	}

	collab := &fakeCollaborator{exports: map[string]string{
		"Objekt 1": "Den;Čas načtení;Místo;Typ;Jméno\nÚt;04.02.2025 07:00:00;A;ST;Jan Novák\n",
		"Objekt 2": "Den;Čas načtení;Místo;Typ;Jméno\nÚt;04.02.2025 08:00:00;B;ST;Petr Svoboda\n",
	}}
	c := importer.NewCoordinator(collab, nil)

	opts := importer.RunOptions{
		Objects:    []string{"Objekt 1", "Objekt 2"},
		TargetPath: target,
	}
	result, err := c.RunSync(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if result.Merge == nil || result.Merge.Added != 2 {
		t.Fatalf("Merge=%+v, want 2 added", result.Merge)
	}
	if result.ArtifactPath != target {
		t.Fatalf("ArtifactPath=%q", result.ArtifactPath)
	}

	// 再跑一遍：没有新数据，Added 必须为 0
	again, err := c.RunSync(context.Background(), opts)
	if err != nil {
		t.Fatalf("second RunSync failed: %v", err)
	}
	if again.Merge.Added != 0 {
		t.Fatalf("second merge Added=%d, want 0", again.Merge.Added)
	}
}

func TestRun_EmitsProgressAndDone(t *testing.T) {
	collab := &fakeCollaborator{exports: map[string]string{
		"Objekt 1": exportFor("Jan Novák"),
	}}
	c := importer.NewCoordinator(collab, nil)

	progress := c.Run(context.Background(), importer.RunOptions{
		Objects:   []string{"Objekt 1"},
		OutputDir: t.TempDir(),
	})

	var types []string
	var final *model.RunResult
	for ev := range progress {
		types = append(types, ev.Type)
		if ev.Type == "done" {
			final = ev.Data.(*model.RunResult)
		}
	}

	if final == nil || !final.Success {
		t.Fatalf("missing done event with result, events=%v", types)
	}
	if types[0] != "start" {
		t.Fatalf("first event=%q, want start", types[0])
	}
}
