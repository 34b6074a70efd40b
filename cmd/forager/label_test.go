package main

import (
	"context"
	"errors"
	"testing"

	"github.com/abelbrown/forager/internal/backend"
	"github.com/abelbrown/forager/internal/ui"
)

type fakeDatasets struct {
	paths   []string
	entries []backend.ImageEntry
	emb     string
	err     error
	texts   []string
}

func (f *fakeDatasets) DatasetInfo(_ context.Context, name string) (backend.Dataset, error) {
	if f.err != nil {
		return backend.Dataset{}, f.err
	}
	return backend.Dataset{Paths: f.paths}, nil
}

func (f *fakeDatasets) Results(_ context.Context, name string) ([]backend.ImageEntry, error) {
	return f.entries, f.err
}

func (f *fakeDatasets) GenerateTextEmbedding(_ context.Context, text string) (string, error) {
	f.texts = append(f.texts, text)
	return f.emb, f.err
}

func TestFetchStackCmdCarriesGeneration(t *testing.T) {
	c := &fakeDatasets{paths: []string{"/a.jpg", "/b.jpg"}}

	msg := fetchStackCmd(c)("cats", 7)()
	got, ok := msg.(ui.StackFetched)
	if !ok {
		t.Fatalf("msg = %T, want ui.StackFetched", msg)
	}
	if got.Dataset != "cats" || got.Gen != 7 || len(got.Paths) != 2 || got.Err != nil {
		t.Errorf("StackFetched = %+v", got)
	}
}

func TestFetchResultsCmdReportsError(t *testing.T) {
	c := &fakeDatasets{err: errors.New("404")}

	msg := fetchResultsCmd(c)("cats", 3)()
	got, ok := msg.(ui.ResultsFetched)
	if !ok {
		t.Fatalf("msg = %T, want ui.ResultsFetched", msg)
	}
	if got.Gen != 3 || got.Err == nil {
		t.Errorf("ResultsFetched = %+v", got)
	}
}

func TestGenerateEmbeddingCmdEchoesText(t *testing.T) {
	c := &fakeDatasets{emb: "AAEC"}

	msg := generateEmbeddingCmd(c)("a red car")()
	got, ok := msg.(ui.EmbeddingFetched)
	if !ok {
		t.Fatalf("msg = %T, want ui.EmbeddingFetched", msg)
	}
	if got.Text != "a red car" || got.Embedding != "AAEC" {
		t.Errorf("EmbeddingFetched = %+v", got)
	}
	if len(c.texts) != 1 {
		t.Errorf("server calls = %d, want 1", len(c.texts))
	}
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"label", "status", "config"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
}

func TestLabelRequiresDataset(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"label"})
	if err := root.Execute(); err == nil {
		t.Error("label without a dataset should fail")
	}
}
