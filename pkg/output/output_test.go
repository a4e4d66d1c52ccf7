package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

func sampleReport() *models.ComparisonReport {
	results := []models.ComparisonResult{
		models.ComparedScreenshot("about.png", "/b/about.png", "/c/about.png", "diffs/diff-about.png", 250, 10000, 2.5, 0.1),
		models.ComparedScreenshot("home.png", "/b/home.png", "/c/home.png", "", 0, 10000, 0, 0.1),
		models.NewScreenshot("pricing.png", "/c/pricing.png"),
		models.MissingScreenshot("legacy.png", "/b/legacy.png"),
	}
	return &models.ComparisonReport{
		Timestamp:         "2026-01-02T03:04:05.000Z",
		BaselineAlias:     "production",
		BaselineCommitSHA: "1111111aaaaaaa",
		BaselineIsPublic:  true,
		CurrentCommitSHA:  "2222222bbbbbbb",
		Threshold:         0.1,
		Results:           results,
		Summary:           models.ComparisonSummary{Total: 4, Passed: 1, Failed: 1, New: 1, Missing: 1},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"", "human", "json"} {
		f, err := NewFormatter(name, &bytes.Buffer{})
		if err != nil || f == nil {
			t.Errorf("NewFormatter(%q) error = %v", name, err)
		}
	}
	if _, err := NewFormatter("xml", nil); err == nil {
		t.Error("NewFormatter(xml) should fail")
	}
}

func TestHumanFormatter_Complete(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter(&buf)

	err := f.Complete(sampleReport(), RunInfo{
		Duration:       1500 * time.Millisecond,
		ReportPath:     "vrt-report.json",
		ScreenshotsURL: "https://shots",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Baseline:  production @ 1111111",
		"✗ Fail",
		"2.500%",
		"diff: diffs/diff-about.png",
		"+ New",
		"- Missing",
		"Failed:   1",
		"Report: vrt-report.json",
		"Screenshots: https://shots",
		"Completed in 1s",
		"Result: Fail",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	f.Error(errors.New("boom"))
	if buf.String() != "Error: boom\n" {
		t.Errorf("Error() output = %q", buf.String())
	}
}

func TestJSONFormatter_Complete(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)
	f.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	if err := f.Complete(sampleReport(), RunInfo{Duration: 2 * time.Second, DiffsURL: "https://diffs"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Result     string `json:"result"`
			DurationMs int64  `json:"duration_ms"`
			Uploads    struct {
				DiffsURL string `json:"diffs_url"`
			} `json:"uploads"`
			Report models.ComparisonReport `json:"report"`
		} `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if event.Type != "complete" || event.Data.Result != "fail" || event.Data.DurationMs != 2000 {
		t.Errorf("event = %+v", event)
	}
	if event.Data.Uploads.DiffsURL != "https://diffs" || len(event.Data.Report.Results) != 4 {
		t.Errorf("event data = %+v", event.Data)
	}

	buf.Reset()
	f.Error(errors.New("boom"))
	if !strings.Contains(buf.String(), `"error": "boom"`) || !strings.Contains(buf.String(), `"result": "error"`) {
		t.Errorf("Error() output = %s", buf.String())
	}
}

func TestRenderSummary_PublicBaseline(t *testing.T) {
	md := RenderSummary(sampleReport(), SummaryOptions{
		APIURL:           "https://artifacts.example/",
		Repository:       "acme/web",
		CurrentCommitSHA: "2222222bbbbbbb",
		ScreenshotsPath:  "./screenshots/",
		DiffsPath:        "screenshot-diffs",
		Images:           ImagesAuto,
		ScreenshotsURL:   "https://shots",
	})

	for _, want := range []string{
		"## Visual Regression Report",
		"> **1/3** screenshots passed | **1** failed | **1** missing | **1** new",
		"**Baseline:** `production` @ `1111111`",
		"**Threshold:** 0.1%",
		"| about.png | :x: fail | 2.500% |",
		"| pricing.png | :new: new | - |",
		"![baseline](https://artifacts.example/public/acme/web/commits/1111111aaaaaaa/screenshots/about.png)",
		"![diff](https://artifacts.example/public/acme/web/commits/2222222bbbbbbb/screenshot-diffs/diff-about.png)",
		"### New Screenshots",
		"- `pricing.png`",
		"### Missing Screenshots",
		"- `legacy.png`",
		"- [PR Screenshots](https://shots)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("summary missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Diff Images") {
		t.Error("diff link should be omitted without a diffs URL")
	}
}

func TestRenderSummary_PrivateBaseline(t *testing.T) {
	r := sampleReport()
	r.BaselineIsPublic = false

	md := RenderSummary(r, SummaryOptions{
		APIURL:           "https://artifacts.example",
		Repository:       "acme/web",
		CurrentCommitSHA: "2222222bbbbbbb",
		ScreenshotsPath:  "screenshots",
		DiffsPath:        "diffs",
		Images:           ImagesAuto,
	})

	if strings.Contains(md, "![") {
		t.Error("private baselines should not embed images")
	}
	for _, want := range []string{
		"[baseline](https://artifacts.example/repo/acme/web/1111111aaaaaaa/screenshots/about.png)",
		"[diff](https://artifacts.example/repo/acme/web/2222222bbbbbbb/diffs/diff-about.png)",
		"(requires login)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("summary missing %q:\n%s", want, md)
		}
	}

	md = RenderSummary(r, SummaryOptions{Images: ImagesAlways})
	if !strings.Contains(md, "![diff]") {
		t.Error("images=true should embed images for private baselines")
	}
}

func TestRenderSummary_Headlines(t *testing.T) {
	tests := []struct {
		name    string
		summary models.ComparisonSummary
		want    string
	}{
		{"all passed", models.ComparisonSummary{Total: 3, Passed: 3}, "> **3/3** screenshots passed\n"},
		{"only new", models.ComparisonSummary{Total: 2, New: 2}, "> **2** new screenshots (no baseline to compare)"},
		{"one new", models.ComparisonSummary{Total: 2, Passed: 1, New: 1}, "> **1** new screenshot (no baseline to compare)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := RenderSummary(&models.ComparisonReport{Summary: tt.summary}, SummaryOptions{})
			if !strings.Contains(md, tt.want) {
				t.Errorf("summary missing %q:\n%s", tt.want, md)
			}
		})
	}
}

func TestAppendStepSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	if err := os.WriteFile(path, []byte("previous step\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := AppendStepSummary(path, sampleReport(), SummaryOptions{}); err != nil {
		t.Fatalf("AppendStepSummary() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "previous step\n## Visual Regression Report") {
		t.Errorf("summary not appended:\n%s", data)
	}
}

func TestWriteActionOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_output")
	outputs := NewActionOutputs(sampleReport(), "https://shots", "")

	if err := WriteActionOutputs(path, outputs); err != nil {
		t.Fatalf("WriteActionOutputs() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	content := string(data)
	for _, want := range []string{
		"total=4\n",
		"passed=1\n",
		"failed=1\n",
		"new=1\n",
		"missing=1\n",
		"result=fail\n",
		"baseline-commit-sha=1111111aaaaaaa\n",
		"baseline-is-public=true\n",
		"screenshots-url=https://shots\n",
		`report={"timestamp":"2026-01-02T03:04:05.000Z"`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("outputs missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "diffs-url") {
		t.Error("empty diffs URL should be omitted")
	}
}

func TestFormatOutput(t *testing.T) {
	if got := formatOutput("result", "pass"); got != "result=pass\n" {
		t.Errorf("formatOutput() = %q", got)
	}

	got := formatOutput("notes", "line one\nline two")
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "notes<<ghadelimiter_") {
		t.Fatalf("formatOutput() = %q", got)
	}
	delimiter := strings.TrimPrefix(lines[0], "notes<<")
	if lines[3] != delimiter || lines[1] != "line one" || lines[2] != "line two" {
		t.Errorf("heredoc output = %q", got)
	}
}

func TestTransferProgress_NonInteractive(t *testing.T) {
	var buf bytes.Buffer
	p := NewTransferProgress(&buf)

	p.Start("download", 3, 3000)
	p.AddBytes(1000)
	p.Done(models.TransferTask{RelativePath: "a.png"}, nil)
	p.AddBytes(1000)
	p.Done(models.TransferTask{RelativePath: "b.png"}, nil)
	p.Done(models.TransferTask{RelativePath: "c.png"}, errors.New("timeout"))

	if completed, failed := p.Counts(); completed != 3 || failed != 1 {
		t.Errorf("Counts() = %d, %d", completed, failed)
	}
	p.Finish()

	out := buf.String()
	if !strings.HasPrefix(out, "download: 2/3 files, 2.0 KiB in ") || !strings.HasSuffix(out, ", 1 failed\n") {
		t.Errorf("output = %q", out)
	}

	buf.Reset()
	p.Start("upload", 0, 0)
	p.Finish()
	if buf.Len() != 0 {
		t.Errorf("empty batch should print nothing, got %q", buf.String())
	}
}

func TestTransferProgress_Interactive(t *testing.T) {
	var buf bytes.Buffer
	p := NewTransferProgress(&buf)
	p.interactive = true

	p.Start("upload", 2, 0)
	p.Done(models.TransferTask{RelativePath: "a.png"}, nil)
	p.Done(models.TransferTask{RelativePath: "b.png"}, nil)
	p.Finish()

	if !strings.Contains(buf.String(), "upload: 2/2 files") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KiB",
		1536:        "1.5 KiB",
		1024 * 1024: "1.0 MiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %s, want %s", in, got, want)
		}
	}
}
