// Package inbox matches uploaded archive files to samples and reports whether
// the archive has finished validating them.
package inbox

import (
	"path"
	"strings"

	"seqsubmit/internal/archive"
)

// Stem is the file name of relativePath without its final extension.
func Stem(relativePath string) string {
	name := path.Base(strings.ReplaceAll(relativePath, "\\", "/"))
	return strings.TrimSuffix(name, path.Ext(name))
}

// MatchSample returns the files whose stem equals alias, in inbox order.
func MatchSample(files []archive.File, alias string) []archive.File {
	var out []archive.File
	for _, f := range files {
		if Stem(f.RelativePath) == alias {
			out = append(out, f)
		}
	}
	return out
}

// IDs returns the provisional ids of files.
func IDs(files []archive.File) []archive.ID {
	out := make([]archive.ID, len(files))
	for i, f := range files {
		out[i] = f.ProvisionalID
	}
	return out
}

// Valid reports whether the archive has validated f: both checksums are known
// and the size is positive.
func Valid(f archive.File) bool {
	return f.EncryptedChecksum != "" && f.UnencryptedChecksum != "" && f.FileSize > 0
}

// Validated reports whether every file is valid. An empty list is not validated.
func Validated(files []archive.File) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !Valid(f) {
			return false
		}
	}
	return true
}

// Status is the validation status label written back to the data tables.
type Status string

const (
	StatusValidated  Status = "validated"
	StatusIncomplete Status = "incomplete"
)

// StatusOf summarises files as a Status.
func StatusOf(files []archive.File) Status {
	if Validated(files) {
		return StatusValidated
	}
	return StatusIncomplete
}
