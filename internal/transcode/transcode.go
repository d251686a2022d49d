// Package transcode drives a CRAM source through the codec into an
// in-memory BAM byte stream and hands that stream to a Sink, without ever
// materializing the whole virtual BAM on disk.
//
// The shape is a classic pipe producer/consumer: an os.Pipe connects an
// htscodec.Writer (producer side) to a Sink (consumer side). A real OS
// pipe, rather than io.Pipe's in-memory one, is required because
// htscodec.Writer binds the encoder to the pipe by dup2-ing its write end
// onto file descriptor 1 (spec.md §4.3's strategy (a)), which needs an
// actual fd. The two goroutines are joined with golang.org/x/sync/errgroup
// before Run returns, so a caller never observes a half-finished
// transcode.
package transcode

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/wtsi-hgi/cramfuse/internal/htscodec"
)

// Sink consumes the transcoded BAM byte stream. Implementations must be
// safe to drive from the single goroutine Run allocates for this purpose;
// they are never called concurrently with themselves.
type Sink interface {
	io.Writer
}

// Run transcodes the CRAM file at path into BAM, streaming the result
// through sink. refPath is forwarded to the codec's reference resolution
// (see internal/cfg's --ref flag); it may be empty.
func Run(path, refPath string, sink Sink) error {
	reader, err := htscodec.OpenReader(path, refPath)
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	defer reader.Close()

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}

	var g errgroup.Group

	g.Go(func() error {
		return produce(reader, pw)
	})

	g.Go(func() error {
		defer pr.Close()
		_, err := io.Copy(sink, pr)
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	return nil
}

// produce writes reader's header and every record to w (the pipe's write
// end), wrapped as a virtual BAM via htscodec.Writer. w is always closed
// before returning, which signals EOF to the consumer goroutine reading
// the other end. Whichever goroutine's error comes first is what errgroup
// surfaces to Run's caller, per errgroup's first-error-wins semantics.
func produce(reader *htscodec.Reader, w *os.File) error {
	defer w.Close()

	writer, err := htscodec.NewWriter(w, reader)
	if err != nil {
		return err
	}

	if err := reader.WriteHeaderTo(writer); err != nil {
		writer.Close()
		return err
	}

	if err := reader.CopyRecords(writer); err != nil {
		writer.Close()
		return err
	}

	return writer.Close()
}

// SizeSink counts the bytes written to it without retaining them: transcode
// once, read the resulting length from N, discard the bytes. (The stat-cache
// warming in internal/cramfs uses RangeSink.TotalBytes instead.)
type SizeSink struct {
	N int64
}

func (s *SizeSink) Write(p []byte) (int, error) {
	s.N += int64(len(p))
	return len(p), nil
}

// RangeSink collects the bytes of the transcoded stream that fall within
// [Start, End) of absolute stream offset, discarding everything outside
// that window. It implements spec.md §4.3's "intersect the requested byte
// range against the stream as it is produced" algorithm so a read at an
// arbitrary offset never requires buffering the whole virtual BAM.
type RangeSink struct {
	Start, End int64

	pos int64
	buf []byte
}

// NewRangeSink returns a RangeSink covering the half-open byte range
// [start, start+length).
func NewRangeSink(start, length int64) *RangeSink {
	return &RangeSink{Start: start, End: start + length}
}

func (s *RangeSink) Write(p []byte) (int, error) {
	n := len(p)
	chunkStart := s.pos
	chunkEnd := s.pos + int64(n)
	s.pos = chunkEnd

	lo := max64(chunkStart, s.Start)
	hi := min64(chunkEnd, s.End)
	if lo < hi {
		s.buf = append(s.buf, p[lo-chunkStart:hi-chunkStart]...)
	}

	// Once the window is fully satisfied there is nothing left to collect,
	// but the producer must still be drained to completion, so Write keeps
	// reporting success rather than short-circuiting with an error.
	return n, nil
}

// Bytes returns the bytes collected within the sink's window. Its length
// is End-Start unless the underlying stream was shorter than End.
func (s *RangeSink) Bytes() []byte {
	return s.buf
}

// TotalBytes returns the full length of the transcoded stream seen so far.
// Because Write always drains to completion (see the comment above), once
// Run has returned this is the transcoded BAM's true total size — the
// value the stat cache warms with, regardless of how narrow the
// originally-requested window was.
func (s *RangeSink) TotalBytes() int64 {
	return s.pos
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
