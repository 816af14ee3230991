package relay

import (
	"errors"
	"io"
	"log/slog"

	"github.com/die-net/tlsrelay/internal/logging"
)

// BufferSize is the largest chunk Copy moves per read.
const BufferSize = 512

var buffers = newBufferPool(BufferSize)

// Copy moves bytes from src to dst one chunk at a time until src reports
// io.EOF, which is a clean finish and returns a nil error.
//
// Each chunk is written completely before the next read, so at most one
// chunk is in flight. The first read or write error ends the copy and is
// returned as-is; nothing is retried.
func Copy(log *slog.Logger, dst io.Writer, src io.Reader) (int64, error) {
	log = logging.OrDiscard(log)

	bp := buffers.Get()
	defer buffers.Put(bp)
	buf := *bp

	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			logging.Trace(log, "relay chunk", "bytes", n)
			if err := writeAll(dst, buf[:n]); err != nil {
				log.Debug("relay write failed", "error", err)
				return written, err
			}
			written += int64(n)
		}

		if errors.Is(rerr, io.EOF) {
			log.Debug("relay reached eof", "bytes", written)
			return written, nil
		}
		if rerr != nil {
			log.Debug("relay read failed", "error", rerr)
			return written, rerr
		}
	}
}

func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n <= 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
