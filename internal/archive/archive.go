// Package archive manages the dated output folder that saved client
// replies are written to.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	folderLayout = "20060102"
	stampLayout  = "2006_01_02_15_04_05"

	// ReplyExt is the extension of saved replies (raw RFC 5322).
	ReplyExt = ".eml"
)

// RunFolder returns base/YYYYMMDD for the run date, creating it when it
// does not exist. created reports whether this call made the folder.
func RunFolder(base string, run time.Time) (dir string, created bool, err error) {
	dir = filepath.Join(base, run.Format(folderLayout))

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", false, fmt.Errorf("output path %s is not a directory", dir)
		}
		return dir, false, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("checking output folder %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating output folder %s: %w", dir, err)
	}
	return dir, true, nil
}

// ReplyFileName returns "{client}_{YYYY_MM_DD_HH_MM_SS}.eml" with the
// client name made safe for the filesystem.
func ReplyFileName(client string, at time.Time) string {
	return SafeName(client) + "_" + at.Format(stampLayout) + ReplyExt
}

// SaveReply writes raw to dir under ReplyFileName and returns its path.
func SaveReply(dir, client string, at time.Time, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("saving reply for %q: message is empty", client)
	}

	path := filepath.Join(dir, ReplyFileName(client, at))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("saving reply for %q: %w", client, err)
	}
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._ -]`)

// SafeName replaces characters that are not safe in file names.
func SafeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unnamed"
	}
	return unsafeChars.ReplaceAllString(s, "_")
}
