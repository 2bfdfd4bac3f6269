// Package artifacts persists screenshot payloads reported by the engine and
// produces the records used to retrieve them later.
package artifacts

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/siteqa/siteqa/internal/engine"
	"github.com/siteqa/siteqa/internal/models"
)

// Saver writes decoded screenshots into a directory and maps them to URLs
// under a fixed mount prefix.
type Saver struct {
	dir       string
	urlPrefix string
}

// NewSaver creates a Saver writing to dir; urlPrefix is the public path the
// files are served from (e.g. "/uploads/screenshots").
func NewSaver(dir, urlPrefix string) *Saver {
	return &Saver{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}
}

// Dir returns the storage directory.
func (s *Saver) Dir() string { return s.dir }

// URLPrefix returns the public mount prefix.
func (s *Saver) URLPrefix() string { return s.urlPrefix }

// Save decodes and stores the screenshots for a result. Storage keys are
// derived from the owning result id plus the entry's position, so concurrent
// runs can never collide. Entries without a payload are skipped silently;
// entries that cannot be decoded or written are skipped with a log line.
// Save never fails the run: it returns whatever it could store plus the log
// lines describing what it could not.
func (s *Saver) Save(resultID string, shots []engine.ReportScreenshot) ([]models.Screenshot, []string) {
	if len(shots) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, []string{fmt.Sprintf("failed to create screenshot directory: %v", err)}
	}

	var saved []models.Screenshot
	var logs []string

	for i, shot := range shots {
		if shot.B64 == nil {
			continue
		}

		name := fmt.Sprintf("%s_%d.png", resultID, i)
		caption := shot.Filename
		if caption == "" {
			caption = name
		}

		data, err := base64.StdEncoding.DecodeString(*shot.B64)
		if err != nil {
			logs = append(logs, fmt.Sprintf("failed to save screenshot %s: %v", caption, err))
			continue
		}

		if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
			logs = append(logs, fmt.Sprintf("failed to save screenshot %s: %v", caption, err))
			continue
		}

		saved = append(saved, models.Screenshot{
			URL:     s.urlPrefix + "/" + name,
			Caption: caption,
		})
	}

	return saved, logs
}
