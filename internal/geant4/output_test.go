package geant4

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindOutputFiles(t *testing.T) {
	workDir := t.TempDir()
	for _, name := range []string{"hits.csv", "run0.root", "summary.txt", "edep.dat", "debug.log"} {
		if err := os.WriteFile(filepath.Join(workDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files := FindOutputFiles(workDir)

	for _, ext := range []string{".csv", ".root", ".txt", ".dat"} {
		if len(files[ext]) != 1 {
			t.Errorf("files[%q] = %v, want one entry", ext, files[ext])
		}
	}
	if _, ok := files[".log"]; ok {
		t.Error(".log files should not be collected")
	}
	if got := files[".csv"]; len(got) == 1 && filepath.Base(got[0]) != "hits.csv" {
		t.Errorf("files[.csv] = %v", got)
	}
}

func TestFindOutputFiles_Empty(t *testing.T) {
	files := FindOutputFiles(t.TempDir())
	if len(files) != 0 {
		t.Errorf("files = %v, want empty", files)
	}
}

func TestParseCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hits.csv")
	content := "event_id,edep,particle\n0,0.5,gamma\n1,1.25,e-\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := ParseCSV(path)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["event_id"] != 0.0 {
		t.Errorf("event_id = %v (%T), want float64 0", rows[0]["event_id"], rows[0]["event_id"])
	}
	if rows[1]["edep"] != 1.25 {
		t.Errorf("edep = %v, want 1.25", rows[1]["edep"])
	}
	if rows[1]["particle"] != "e-" {
		t.Errorf("particle = %v, want e-", rows[1]["particle"])
	}
}

func TestParseASCIIHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h1_edep.txt")
	content := `# title = Energy Deposit
# bins = 3
0.5 10
1.5 25
2.5 7
not a data line
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	hist, err := ParseASCIIHistogram(path)
	if err != nil {
		t.Fatalf("ParseASCIIHistogram: %v", err)
	}
	if hist.Header["title"] != "Energy Deposit" {
		t.Errorf("title = %q", hist.Header["title"])
	}
	if hist.Header["bins"] != "3" {
		t.Errorf("bins = %q", hist.Header["bins"])
	}
	if len(hist.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(hist.Points))
	}
	if hist.Points[1].X != 1.5 || hist.Points[1].Y != 25 {
		t.Errorf("point[1] = %+v", hist.Points[1])
	}
}
