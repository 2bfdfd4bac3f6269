package artifacts

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteqa/siteqa/internal/engine"
)

func strPtr(s string) *string { return &s }

func TestSave_WritesDecodedScreenshots(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver(dir, "/uploads/screenshots")

	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	saved, logs := s.Save("01ABC", []engine.ReportScreenshot{
		{Filename: "home.png", B64: &payload},
		{Filename: "login.png", B64: &payload},
	})

	assert.Empty(t, logs)
	require.Len(t, saved, 2)

	assert.Equal(t, "/uploads/screenshots/01ABC_0.png", saved[0].URL)
	assert.Equal(t, "home.png", saved[0].Caption)
	assert.Equal(t, "/uploads/screenshots/01ABC_1.png", saved[1].URL)

	data, err := os.ReadFile(filepath.Join(dir, "01ABC_0.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSave_EmptyAndNilInput(t *testing.T) {
	s := NewSaver(t.TempDir(), "/uploads/screenshots")

	saved, logs := s.Save("01ABC", nil)
	assert.Nil(t, saved)
	assert.Nil(t, logs)

	saved, logs = s.Save("01ABC", []engine.ReportScreenshot{})
	assert.Nil(t, saved)
	assert.Nil(t, logs)
}

func TestSave_SkipsEntriesWithoutPayload(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver(dir, "/uploads/screenshots")

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	saved, logs := s.Save("01ABC", []engine.ReportScreenshot{
		{Filename: "missing.png", B64: nil},
		{Filename: "present.png", B64: &payload},
	})

	// Missing payloads are skipped without a log line; position in the
	// storage key still reflects the original index.
	assert.Empty(t, logs)
	require.Len(t, saved, 1)
	assert.Equal(t, "/uploads/screenshots/01ABC_1.png", saved[0].URL)
	assert.Equal(t, "present.png", saved[0].Caption)
}

func TestSave_BadBase64LogsAndContinues(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver(dir, "/uploads/screenshots")

	good := base64.StdEncoding.EncodeToString([]byte("ok"))
	saved, logs := s.Save("01ABC", []engine.ReportScreenshot{
		{Filename: "broken.png", B64: strPtr("!!!not-base64!!!")},
		{Filename: "fine.png", B64: &good},
	})

	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "failed to save screenshot broken.png")
	require.Len(t, saved, 1)
	assert.Equal(t, "fine.png", saved[0].Caption)
}

func TestSave_DefaultsCaptionToStorageName(t *testing.T) {
	s := NewSaver(t.TempDir(), "/uploads/screenshots")

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	saved, _ := s.Save("01ABC", []engine.ReportScreenshot{
		{Filename: "", B64: &payload},
	})

	require.Len(t, saved, 1)
	assert.Equal(t, "01ABC_0.png", saved[0].Caption)
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "shots")
	s := NewSaver(dir, "/uploads/screenshots")

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	saved, logs := s.Save("01ABC", []engine.ReportScreenshot{
		{Filename: "a.png", B64: &payload},
	})

	assert.Empty(t, logs)
	require.Len(t, saved, 1)
	_, err := os.Stat(filepath.Join(dir, "01ABC_0.png"))
	assert.NoError(t, err)
}

func TestNewSaver_TrimsPrefixSlash(t *testing.T) {
	s := NewSaver("shots", "/uploads/screenshots/")
	assert.Equal(t, "/uploads/screenshots", s.URLPrefix())
}
