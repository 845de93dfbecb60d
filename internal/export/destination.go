package export

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/gendb/internal/synth"
)

// writeStream encodes table to a file path or an s3:// object.
func (d *Dispatcher) writeStream(ctx context.Context, table *synth.Table, target Target) (int64, error) {
	enc := encoders[target.Format]
	encode := func(w io.Writer) error { return enc(ctx, w, table) }

	if isObjectURL(target.Destination) {
		bucket, key, err := parseObjectURL(target.Destination)
		if err != nil {
			return 0, err
		}
		if d.objects == nil {
			return 0, ErrNoObjectStore
		}
		var buf bytes.Buffer
		if err := encode(&buf); err != nil {
			return 0, err
		}
		size := int64(buf.Len())
		if err := d.objects.PutObject(ctx, bucket, key, target.Format.ContentType(), &buf); err != nil {
			return 0, fmt.Errorf("upload: %w", err)
		}
		return size, nil
	}

	return writeFile(target.Destination, encode)
}

func isObjectURL(dest string) bool {
	return strings.HasPrefix(strings.ToLower(dest), "s3://")
}

// parseObjectURL splits s3://bucket/key.
func parseObjectURL(dest string) (bucket, key string, err error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", "", fmt.Errorf("invalid object url: %w", err)
	}
	bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("object url %q needs a bucket and a key", dest)
	}
	return bucket, key, nil
}

// writeFile writes through a temporary file in the target directory and
// renames it into place, so a failed write never leaves a partial file.
func writeFile(path string, encode func(io.Writer) error) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return 0, fmt.Errorf("chmod: %w", err)
	}
	bw := bufio.NewWriterSize(tmp, 64*1024)
	cw := &countingWriter{w: bw}
	if err := encode(cw); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename: %w", err)
	}
	committed = true
	return cw.n, nil
}

// countingWriter counts bytes written. It exposes no Close method.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
