// Package snapshot layers an optional serialization format on top of the
// purely in-memory paged range cache.
//
// A snapshot is self-describing: the header records the codec and
// compression by name, so any snapshot can be read back without out-of-band
// configuration. Restoring re-validates the pageset invariants, so a
// corrupted or hand-edited snapshot cannot produce an inconsistent set.
package snapshot

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/rangecache/codec"
	"github.com/hupe1980/rangecache/pageset"
)

var (
	// ErrBadMagic is returned when the input does not start with a
	// snapshot header.
	ErrBadMagic = errors.New("not a rangecache snapshot")

	// ErrUnknownCodec is returned when the header names a codec this
	// build does not know.
	ErrUnknownCodec = errors.New("unknown snapshot codec")

	// ErrUnknownCompression is returned when the header names an
	// unsupported compression.
	ErrUnknownCompression = errors.New("unknown snapshot compression")
)

var magic = [4]byte{'R', 'C', 'S', 'S'}

const formatVersion = 1

// Compression selects the body compression of a snapshot.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

type options struct {
	codec       codec.Codec
	compression Compression
}

// Option configures snapshot writing. Reading is driven by the header.
type Option func(*options)

// WithCodec sets the page codec. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression sets the body compression. Defaults to CompressionNone.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// header is always plain JSON; it must be decodable before the codec and
// compression are known.
type header struct {
	Codec       string `json:"codec"`
	Compression string `json:"compression"`
	Pages       int    `json:"pages"`
}

type pageRecord[K cmp.Ordered, V any] struct {
	Items    []pageset.Item[K, V] `json:"items,omitempty"`
	Min      K                    `json:"min"`
	Max      K                    `json:"max"`
	IsStart  bool                 `json:"is_start,omitempty"`
	IsFinish bool                 `json:"is_finish,omitempty"`
}

// Write serializes the set to w. K and V must be encodable by the chosen
// codec.
func Write[K cmp.Ordered, V any](w io.Writer, set *pageset.PagedSet[K, V], opts ...Option) error {
	o := options{codec: codec.Default, compression: CompressionNone}
	for _, fn := range opts {
		fn(&o)
	}

	pages := set.Pages()
	hdr, err := json.Marshal(header{
		Codec:       o.codec.Name(),
		Compression: string(o.compression),
		Pages:       len(pages),
	})
	if err != nil {
		return err
	}

	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{formatVersion}); err != nil {
		return err
	}
	if _, err := w.Write(binary.AppendUvarint(nil, uint64(len(hdr)))); err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	body, closeBody, err := compressWriter(w, o.compression)
	if err != nil {
		return err
	}

	for _, p := range pages {
		rec, err := o.codec.Marshal(pageRecord[K, V]{
			Items:    p.Items(),
			Min:      p.Min(),
			Max:      p.Max(),
			IsStart:  p.IsStart(),
			IsFinish: p.IsFinish(),
		})
		if err != nil {
			return err
		}
		if _, err := body.Write(binary.AppendUvarint(nil, uint64(len(rec)))); err != nil {
			return err
		}
		if _, err := body.Write(rec); err != nil {
			return err
		}
	}
	return closeBody()
}

// Read restores a set from a snapshot previously produced by Write,
// validating the pageset invariants.
func Read[K cmp.Ordered, V any](r io.Reader) (*pageset.PagedSet[K, V], error) {
	br := bufio.NewReader(r)

	var head [5]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if [4]byte(head[:4]) != magic {
		return nil, ErrBadMagic
	}
	if head[4] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadMagic, head[4])
	}

	hdrLen, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	hdrBytes := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrBytes); err != nil {
		return nil, err
	}
	var hdr header
	if err := json.Unmarshal(hdrBytes, &hdr); err != nil {
		return nil, err
	}

	c, ok := codec.ByName(hdr.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, hdr.Codec)
	}
	bodyReader, err := compressReader(br, Compression(hdr.Compression))
	if err != nil {
		return nil, err
	}
	body := bufio.NewReader(bodyReader)

	pages := make([]*pageset.Page[K, V], 0, hdr.Pages)
	for i := 0; i < hdr.Pages; i++ {
		recLen, err := binary.ReadUvarint(body)
		if err != nil {
			return nil, err
		}
		recBytes := make([]byte, recLen)
		if _, err := io.ReadFull(body, recBytes); err != nil {
			return nil, err
		}
		var rec pageRecord[K, V]
		if err := c.Unmarshal(recBytes, &rec); err != nil {
			return nil, err
		}
		pages = append(pages, pageset.NewPageBounds(rec.Items, rec.Min, rec.Max, rec.IsStart, rec.IsFinish))
	}

	return pageset.FromPages(pages)
}

func compressWriter(w io.Writer, c Compression) (io.Writer, func() error, error) {
	switch c {
	case CompressionNone, "":
		return w, func() error { return nil }, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		return lw, lw.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCompression, c)
	}
}

func compressReader(r io.Reader, c Compression) (io.Reader, error) {
	switch c {
	case CompressionNone, "":
		return r, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case CompressionLZ4:
		return lz4.NewReader(r), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, c)
	}
}
