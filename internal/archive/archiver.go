// Package archive copies classified documents into a sector and month
// partitioned tree.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/fiscalia/internal/util"
)

// NoDateBucket is the month directory used when the issue date is unusable
const NoDateBucket = "no valid date"

// UnknownSector is the sector directory used when the name sanitizes to ""
const UnknownSector = "unknown_sector"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

var leadingMonth = regexp.MustCompile(`^(\d{4})-(\d{2})`)

// MonthBucket returns the YYYY-MM bucket for an NF-e issue date, or
// NoDateBucket when no supported layout matches.
func MonthBucket(issueDate string) string {
	issueDate = strings.TrimSpace(issueDate)
	if issueDate == "" {
		return NoDateBucket
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, issueDate); err == nil {
			return t.Format("2006-01")
		}
	}

	if m := leadingMonth.FindStringSubmatch(issueDate); m != nil && m[2] >= "01" && m[2] <= "12" {
		return m[1] + "-" + m[2]
	}

	return NoDateBucket
}

// Archiver copies source files under a root directory
type Archiver struct {
	root string
}

// NewArchiver creates an archiver rooted at dir
func NewArchiver(dir string) *Archiver {
	return &Archiver{root: dir}
}

// Root returns the output root
func (a *Archiver) Root() string {
	return a.root
}

// Destination returns <root>/<sector>/<month>/<file name> for src
func (a *Archiver) Destination(src, sectorName, issueDate string) string {
	return filepath.Join(
		a.root,
		util.SanitizePathSegment(sectorName, UnknownSector),
		MonthBucket(issueDate),
		filepath.Base(src),
	)
}

// Archive copies src into its partition and returns the destination path.
// The source file is never moved or removed; an existing destination is
// overwritten.
func (a *Archiver) Archive(src, sectorName, issueDate string) (string, error) {
	dst := a.Destination(src, sectorName, issueDate)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	// Copy via a temp file in the target directory, then rename
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".archive-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}
	// Keep the original modification time
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
