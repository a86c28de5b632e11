package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestReport_Close(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	src := filepath.Join(dir, "sheet.yaml")
	if err := os.WriteFile(src, []byte("name: first"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := r.StoreCopy("source.yaml", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	// content at the time of StoreCopy is kept
	if err := os.WriteFile(src, []byte("name: second"), 0644); err != nil {
		t.Fatal(err)
	}
	r.Store("sheet.yaml", src)
	r.StoreData("out.css", []byte("a { color: red; }\n"))
	r.Store("missing.log", filepath.Join(dir, "missing.log"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, conf.Destination)
	if files["source.yaml"] != "name: first" {
		t.Errorf("source.yaml = %q", files["source.yaml"])
	}
	if files["sheet.yaml"] != "name: second" {
		t.Errorf("sheet.yaml = %q", files["sheet.yaml"])
	}
	if files["out.css"] != "a { color: red; }\n" {
		t.Errorf("out.css = %q", files["out.css"])
	}
	if _, ok := files["missing.log"]; ok {
		t.Error("missing file should be skipped")
	}
	if !strings.Contains(files["MANIFEST"], "out.css") {
		t.Errorf("MANIFEST = %q", files["MANIFEST"])
	}
}

func TestReport_StoreCopyVersions(t *testing.T) {
	dir := t.TempDir()
	r := &Report{entries: make(map[string]entry)}

	src := filepath.Join(dir, "a.css")
	if err := os.WriteFile(src, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := r.StoreCopy("a.css", src); err != nil {
			t.Fatalf("StoreCopy() error = %v", err)
		}
	}
	if len(r.entries) != 2 {
		t.Errorf("entries = %d, want 2", len(r.entries))
	}
	if err := r.StoreCopy("b.css", filepath.Join(dir, "none")); err == nil {
		t.Error("StoreCopy() expected error for missing file")
	}
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if err := r.StoreCopy("a", "b"); err != nil {
		t.Errorf("StoreCopy() on nil report error = %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name() = %q", r.Name())
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on nil report error = %v", err)
	}
}

func TestReport_StoreOverwritePanics(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("log", "a.log")
	r.Store("log", "a.log")

	defer func() {
		if recover() == nil {
			t.Error("expected panic on overwrite")
		}
	}()
	r.Store("log", "b.log")
}
