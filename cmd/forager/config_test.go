package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/forager/internal/config"
)

func TestConfigSaveWritesResolvedSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "saved", "config.json")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "save", path,
		"--server-url", "http://labeler:9000",
		"--view", "grid",
		"--poll-interval", "5s",
		"--focus-guard",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("config save: %v", err)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("output = %q, want the saved path", out.String())
	}

	got, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load saved file: %v", err)
	}
	if got.ServerURL != "http://labeler:9000" || got.View != config.ViewGrid {
		t.Errorf("saved server/view = %q/%q", got.ServerURL, got.View)
	}
	if got.PollInterval != 5*time.Second || !got.FocusGuard {
		t.Errorf("saved poll/guard = %v/%v", got.PollInterval, got.FocusGuard)
	}
	if got.ImageHeight != 3 {
		t.Errorf("unset image_height = %d, want default 3", got.ImageHeight)
	}
}

func TestConfigSaveDefaultsToConfigFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "forager.json")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "config", "save", "--image-height", "5"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config save: %v", err)
	}

	got, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ImageHeight != 5 {
		t.Errorf("image_height = %d, want 5", got.ImageHeight)
	}
}

func TestConfigSaveRejectsInvalidView(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := newRootCmd()
	root.SetArgs([]string{"config", "save", filepath.Join(t.TempDir(), "c.json"), "--view", "mosaic"})
	if err := root.Execute(); err == nil {
		t.Error("an invalid view should not be saved")
	}
}
