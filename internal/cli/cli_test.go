package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(nil)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tour.json")
	data := `[
		{"id":"j1","type":"journey","properties":{"title":"Tour"},"content":["g1","g2"]},
		{"id":"g1","type":"step_group","parentId":"j1","content":["s1","s2"]},
		{"id":"g2","type":"step_group","parentId":"j1","content":["s3"]},
		{"id":"s1","type":"step","parentId":"g1","properties":{"title":"One","stepIdInGroup":1},"content":[]},
		{"id":"s2","type":"step","parentId":"g1","properties":{"title":"Two","stepIdInGroup":2},"content":[]},
		{"id":"s3","type":"step","parentId":"g2","properties":{"title":"Three","stepIdInGroup":1},"content":[]}
	]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STEPJOURNEY_CONFIG", "")
	t.Setenv("STEPJOURNEY_DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STEPJOURNEY_FIXTURES_DIR", filepath.Join(dir, "fixtures"))
	t.Setenv("STEPJOURNEY_LOG_MODE", "prod")
	return dir
}

func TestImportThenFlatten(t *testing.T) {
	dir := isolate(t)
	fixture := writeFixture(t)

	out, err := runCmd(t, "--data-dir", dir, "import", fixture)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var imported struct {
		Blocks int    `json:"blocks"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatalf("decode import output %q: %v", out, err)
	}
	if imported.Blocks != 6 || imported.Error != "" {
		t.Fatalf("unexpected import result %+v", imported)
	}

	out, err = runCmd(t, "--data-dir", dir, "flatten", "j1")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	var flat struct {
		JourneyID string             `json:"journeyId"`
		Title     string             `json:"title"`
		Steps     []flattenedStepOut `json:"steps"`
	}
	if err := json.Unmarshal([]byte(out), &flat); err != nil {
		t.Fatalf("decode flatten output %q: %v", out, err)
	}
	if flat.JourneyID != "j1" || flat.Title != "Tour" {
		t.Fatalf("unexpected journey %q %q", flat.JourneyID, flat.Title)
	}
	want := []string{"s1", "s2", "s3"}
	if len(flat.Steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(flat.Steps), len(want))
	}
	for i, id := range want {
		if flat.Steps[i].ID != id || flat.Steps[i].GlobalIndex != i {
			t.Errorf("step %d = %+v, want id %s", i, flat.Steps[i], id)
		}
	}
	if flat.Steps[2].GroupID != "g2" {
		t.Errorf("third step group = %q", flat.Steps[2].GroupID)
	}
}

func TestFlattenUnknownJourney(t *testing.T) {
	dir := isolate(t)
	if _, err := runCmd(t, "--data-dir", dir, "flatten", "nope"); err == nil {
		t.Fatal("expected an error for an unknown journey")
	}
}

func TestFlattenRequiresID(t *testing.T) {
	isolate(t)
	if _, err := runCmd(t, "flatten"); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestImportMissingFile(t *testing.T) {
	dir := isolate(t)
	if _, err := runCmd(t, "--data-dir", dir, "import", filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
