// Package htscodec is cramfuse's binding to the external CRAM/BAM codec
// library. Per spec.md §1, the codec is an external collaborator: the
// filesystem depends on it only through open/close/get-format/read-header/
// read-alignment/write-header/write-alignment, and the CRAM
// reference-sequence resolution mechanism (REF_CACHE/REF_PATH/the UR header
// tag) is entirely delegated to it.
//
// No pure-Go library in the examined ecosystem reads CRAM (the closest,
// biogo/hts, only speaks BAM/SAM/BGZF) — see DESIGN.md for the fuller
// argument — so this package binds directly to htslib via cgo, the same
// library the original C implementation linked against. The functions
// below are a one-to-one Go-shaped wrapping of hts_open/hts_close/
// hts_get_format/sam_hdr_read/sam_read1/sam_hdr_write/sam_write1.
//
// The encoder only knows how to open by path, and opens "-" to mean
// standard output (spec.md §4.3's "Binding the encoder to the pipe").
// htslib's direct-byte-stream binding (strategy (b): an hFILE_backend) is
// declared in hfile_internal.h, which is not installed by a distro htslib
// package and is not reachable through `pkg-config htslib`'s public
// headers, so Writer instead uses spec.md's strategy (a): it temporarily
// dup2s the pipe's write end onto file descriptor 1, opens "-", and
// restores the previous stdout fd on Close. See DESIGN.md for the fuller
// argument and golang.org/x/sys/unix for the dup2/close calls.
package htscodec

/*
#cgo pkg-config: htslib
#include <stdlib.h>
#include <htslib/hts.h>
#include <htslib/sam.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Format mirrors htslib's htsExactFormat enum values we care about.
type Format int

const (
	FormatUnknown Format = iota
	FormatSAM
	FormatBAM
	FormatCRAM
)

// DetectFormat opens path read-only just long enough to ask htslib what
// format it is, then closes it. It does not check that path is a regular
// file or symlink; per spec.md's is_cram contract, that is the caller's
// responsibility.
func DetectFormat(path string) (Format, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	cmode := C.CString("r")
	defer C.free(unsafe.Pointer(cmode))

	fp := C.hts_open(cpath, cmode)
	if fp == nil {
		return FormatUnknown, fmt.Errorf("htscodec: open %s: %w", path, errFromErrno())
	}
	defer C.hts_close(fp)

	return formatOf(fp), nil
}

func formatOf(fp *C.htsFile) Format {
	format := C.hts_get_format(fp)
	if format == nil {
		return FormatUnknown
	}
	switch format.format {
	case C.bam:
		return FormatBAM
	case C.cram:
		return FormatCRAM
	case C.sam:
		return FormatSAM
	default:
		return FormatUnknown
	}
}

func errFromErrno() error {
	// htslib sets errno on failure; callers only need "it failed".
	return errors.New("htslib I/O error")
}

// Reader is an open CRAM (or BAM/SAM) decoder, the analogue of the
// original's htsFile* opened with mode "r".
type Reader struct {
	fp     *C.htsFile
	hdr    *C.sam_hdr_t
	format Format
}

// OpenReader opens path for reading through htslib. refPath, if non-empty,
// is set ahead of REF_CACHE/REF_PATH/the CRAM header's UR tag, per the
// original's documented reference-resolution search order.
func OpenReader(path, refPath string) (*Reader, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	cmode := C.CString("r")
	defer C.free(unsafe.Pointer(cmode))

	fp := C.hts_open(cpath, cmode)
	if fp == nil {
		return nil, fmt.Errorf("htscodec: open %s: %w", path, errFromErrno())
	}

	if refPath != "" {
		cref := C.CString(refPath)
		defer C.free(unsafe.Pointer(cref))
		C.hts_set_fai_filename(fp, cref)
	}

	r := &Reader{fp: fp, format: formatOf(fp)}

	hdr := C.sam_hdr_read(fp)
	if hdr == nil {
		C.hts_close(fp)
		return nil, fmt.Errorf("htscodec: read header of %s: %w", path, errFromErrno())
	}
	r.hdr = hdr

	return r, nil
}

// Format reports the detected format of the file this Reader was opened
// against.
func (r *Reader) Format() Format { return r.format }

// WriteHeaderTo writes this reader's header through w.
func (r *Reader) WriteHeaderTo(w *Writer) error {
	if C.sam_hdr_write(w.fp, r.hdr) < 0 {
		return fmt.Errorf("htscodec: write header: %w", errFromErrno())
	}
	return nil
}

// CopyRecords reads every alignment record from r and writes it to w, in
// order, until EOF. It is the producer half of the transcode pipeline
// (spec.md §4.3 step 2, "Producer").
func (r *Reader) CopyRecords(w *Writer) error {
	rec := C.bam_init1()
	defer C.bam_destroy1(rec)

	for {
		ret := C.sam_read1(r.fp, r.hdr, rec)
		if ret < 0 {
			if ret == -1 {
				return nil // EOF
			}
			return fmt.Errorf("htscodec: read record: %w", errFromErrno())
		}

		if C.sam_write1(w.fp, w.hdr, rec) < 0 {
			return fmt.Errorf("htscodec: write record: %w", errFromErrno())
		}
	}
}

// Close closes the underlying htsFile and frees the header.
func (r *Reader) Close() error {
	if r.hdr != nil {
		C.sam_hdr_destroy(r.hdr)
		r.hdr = nil
	}
	if r.fp != nil {
		ret := C.hts_close(r.fp)
		r.fp = nil
		if ret < 0 {
			return fmt.Errorf("htscodec: close: %w", errFromErrno())
		}
	}
	return nil
}

// stdoutMu serializes every Writer's dup2-over-stdout region process-wide,
// per spec.md §5's "a mutex must serialize the duplicate-restore region
// across all concurrent transcode invocations" for this binding strategy.
// It is held for a Writer's entire lifetime, from NewWriter to Close.
var stdoutMu sync.Mutex

// Writer is a BAM encoder bound to the process's stdout file descriptor for
// its lifetime; NewWriter dup2s the given pipe write end (from
// internal/transcode) onto fd 1, so that pipe receives the encoded bytes.
// The previous stdout fd is saved and restored on Close.
type Writer struct {
	fp         *C.htsFile
	hdr        *C.sam_hdr_t
	savedStdout int
	err        error
}

// NewWriter creates a BAM encoder that writes to pipeWrite: it dup2s
// pipeWrite's descriptor onto fd 1 itself (the caller does not need to),
// opens the encoder against "-", and clones templateHeader's header so
// the virtual BAM's header matches the source CRAM's.
func NewWriter(pipeWrite *os.File, templateHeader *Reader) (*Writer, error) {
	stdoutMu.Lock()

	saved, err := unix.Dup(1)
	if err != nil {
		stdoutMu.Unlock()
		return nil, fmt.Errorf("htscodec: saving stdout fd: %w", err)
	}

	if err := unix.Dup2(int(pipeWrite.Fd()), 1); err != nil {
		unix.Close(saved)
		stdoutMu.Unlock()
		return nil, fmt.Errorf("htscodec: dup2 pipe onto stdout: %w", err)
	}

	cpath := C.CString("-")
	defer C.free(unsafe.Pointer(cpath))
	cmode := C.CString("wb")
	defer C.free(unsafe.Pointer(cmode))

	fp := C.hts_open(cpath, cmode)
	if fp == nil {
		unix.Dup2(saved, 1)
		unix.Close(saved)
		stdoutMu.Unlock()
		return nil, fmt.Errorf("htscodec: open encoder on stdout: %w", errFromErrno())
	}

	return &Writer{
		fp:          fp,
		hdr:         C.sam_hdr_dup(templateHeader.hdr),
		savedStdout: saved,
	}, nil
}

// Close flushes and closes the encoder (which flushes to whatever fd 1
// currently is), then restores the stdout fd NewWriter saved and releases
// the process-wide lock NewWriter took.
func (w *Writer) Close() error {
	defer func() {
		unix.Dup2(w.savedStdout, 1)
		unix.Close(w.savedStdout)
		stdoutMu.Unlock()
	}()

	if w.hdr != nil {
		C.sam_hdr_destroy(w.hdr)
		w.hdr = nil
	}
	if w.fp == nil {
		return w.err
	}
	ret := C.hts_close(w.fp)
	w.fp = nil
	if ret < 0 && w.err == nil {
		w.err = fmt.Errorf("htscodec: close writer: %w", errFromErrno())
	}
	return w.err
}
