package htscodec

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatConstantsAreDistinct(t *testing.T) {
	seen := map[Format]bool{}
	for _, f := range []Format{FormatUnknown, FormatSAM, FormatBAM, FormatCRAM} {
		assert.False(t, seen[f], "duplicate Format value %d", f)
		seen[f] = true
	}
}

func TestDetectFormatMissingFile(t *testing.T) {
	_, err := DetectFormat(filepath.Join(t.TempDir(), "does-not-exist.cram"))
	assert.Error(t, err)
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "does-not-exist.cram"), "")
	assert.Error(t, err)
}
