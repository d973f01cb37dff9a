package archive

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	Register(xzCodec{})
}

type xzCodec struct{}

func (xzCodec) Name() string      { return XZ }
func (xzCodec) Extension() string { return ".xz" }

func (xzCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating xz reader: %w", err)
	}
	return io.NopCloser(xr), nil
}

func (xzCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("creating xz writer: %w", err)
	}
	return xw, nil
}
