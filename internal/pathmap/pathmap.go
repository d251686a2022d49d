// Package pathmap maps mount-relative paths onto the canonical source
// directory that cramfuse projects, and provides the small set of
// extension-juggling helpers the rest of cramfuse needs to recognise and
// rewrite ".cram"/".bam" names.
package pathmap

import (
	"path/filepath"
	"strings"

	"github.com/wtsi-hgi/cramfuse/internal/htscodec"
)

// Mapper resolves mount-relative paths against a frozen source directory.
//
// The canonical source directory is resolved once, at construction, rather
// than lazily behind a package-level static local the way the original C
// implementation did (source_path's function-local `static const char*
// source`). One-shot construction makes the frozen-after-init invariant
// explicit instead of relying on first-caller-wins initialization order.
type Mapper struct {
	source string
}

// NewMapper resolves dir to an absolute, symlink-free canonical path and
// returns a Mapper rooted there.
func NewMapper(dir string) (*Mapper, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Mapper{source: resolved}, nil
}

// Source returns the canonical source directory.
func (m *Mapper) Source() string {
	return m.source
}

// SourcePath prepends the canonical source directory to a mount-relative
// path.
func (m *Mapper) SourcePath(mountRel string) string {
	return Concat(m.source, mountRel)
}

// Concat returns a with a single separator and b appended, stripping
// trailing separators from a and leading separators from b. It never
// inserts a double separator and never collapses a to empty.
func Concat(a, b string) string {
	a = strings.TrimRight(a, "/")
	b = strings.TrimLeft(b, "/")
	return a + "/" + b
}

// HasExtension reports whether the last '.'-delimited suffix of p equals
// ext. A path with no '.' is false. Comparison is case-sensitive.
func HasExtension(p, ext string) bool {
	i := strings.LastIndexByte(p, '.')
	if i < 0 {
		return false
	}
	return p[i:] == ext
}

// SubExtension replaces the suffix of p starting at its last '.' with ext.
// If p has no '.', ext is appended with no separator inserted:
//
//	SubExtension("f.cram", ".bam") == "f.bam"
//	SubExtension("f", ".bam")      == "f.bam"
func SubExtension(p, ext string) string {
	i := strings.LastIndexByte(p, '.')
	if i < 0 {
		return p + ext
	}
	return p[:i] + ext
}

// IsCRAM reports whether the file at sourcePath is, according to the
// codec, actually in CRAM format — not merely named with a ".cram"
// extension. Virtual-BAM injection (spec.md §4.4) is gated on this rather
// than on the name alone, so a file merely named "*.cram" that isn't
// really CRAM gets no virtual sibling.
func IsCRAM(sourcePath string) bool {
	format, err := htscodec.DetectFormat(sourcePath)
	if err != nil {
		return false
	}
	return format == htscodec.FormatCRAM
}
