package pathmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat(t *testing.T) {
	assert.Equal(t, "/a/b", Concat("/a/", "/b"))
	assert.Equal(t, "/a/b", Concat("/a", "b"))
	assert.Equal(t, "/a/b", Concat("/a///", "///b"))
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("f.cram", ".cram"))
	assert.False(t, HasExtension("fcram", ".cram"))
	assert.False(t, HasExtension("f", ".cram"))
	assert.False(t, HasExtension("f.cram", ".bam"))
}

func TestSubExtension(t *testing.T) {
	assert.Equal(t, "f.bam", SubExtension("f.cram", ".bam"))
	assert.Equal(t, "f.bam", SubExtension("f", ".bam"))
	assert.Equal(t, "a/b.bam", SubExtension("a/b.cram", ".bam"))
}

func TestMapperSourcePath(t *testing.T) {
	m := &Mapper{source: "/data/source"}
	assert.Equal(t, "/data/source/a/b.cram", m.SourcePath("a/b.cram"))
	assert.Equal(t, "/data/source/a/b.cram", m.SourcePath("/a/b.cram"))
}

func TestIsCRAMRejectsNonCRAMFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonsense.cram")
	require := os.WriteFile(path, []byte("not a cram file"), 0o644)
	assert.NoError(t, require)
	assert.False(t, IsCRAM(path))
}
