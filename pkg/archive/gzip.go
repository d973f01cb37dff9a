package archive

import (
	"compress/gzip"
	"fmt"
	"io"
)

func init() {
	Register(gzipCodec{})
}

type gzipCodec struct{}

func (gzipCodec) Name() string      { return Gzip }
func (gzipCodec) Extension() string { return ".gz" }

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	return gr, nil
}

func (gzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, gzip.BestCompression)
}
