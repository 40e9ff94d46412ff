package archive

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// DecompressPool manages reusable zstd decoders for zstd-compressed zip
// entries (method 93) to reduce allocation overhead.
type DecompressPool struct {
	pool                  *sync.Pool
	maxDecoderMemory      uint64
	decoderConcurrencySet bool
	decoderConcurrency    int
	decoderLowmemSet      bool
	decoderLowmem         bool
}

// decompressOption configures a DecompressPool.
type decompressOption func(*DecompressPool)

// withDecoderConcurrency sets the decoder concurrency level.
func withDecoderConcurrency(n int) decompressOption {
	return func(p *DecompressPool) {
		if n < 0 {
			n = 0
		}
		p.decoderConcurrency = n
		p.decoderConcurrencySet = true
	}
}

// withDecoderLowmem enables or disables low-memory mode for decoders.
func withDecoderLowmem(b bool) decompressOption {
	return func(p *DecompressPool) {
		p.decoderLowmem = b
		p.decoderLowmemSet = true
	}
}

// NewDecompressPool creates a new pool for zstd decoders.
// If maxMemory is 0, no memory limit is applied to decoders.
func NewDecompressPool(maxMemory uint64, opts ...decompressOption) *DecompressPool {
	p := &DecompressPool{
		maxDecoderMemory:      maxMemory,
		decoderConcurrencySet: true,
		decoderConcurrency:    1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := p.newDecoder(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

// Decompressor returns a zip.Decompressor backed by the pool. The decoder
// goes back to the pool when the returned reader is closed.
func (p *DecompressPool) Decompressor() zip.Decompressor {
	return func(r io.Reader) io.ReadCloser {
		dec, release, err := p.get(r)
		if err != nil {
			return errReadCloser{err: err}
		}
		return &pooledReader{dec: dec, release: release}
	}
}

// get returns a decoder configured to read from r.
// The caller must call the returned release function when done.
func (p *DecompressPool) get(r io.Reader) (*zstd.Decoder, func(), error) {
	value := p.pool.Get()
	dec, ok := value.(*zstd.Decoder)
	if !ok {
		// Pool's New function failed, try directly
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		dec.Close()
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

// newDecoder creates a new zstd decoder with the configured memory limit.
func (p *DecompressPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := make([]zstd.DOption, 0, 3)
	if p.decoderConcurrencySet {
		opts = append(opts, zstd.WithDecoderConcurrency(p.decoderConcurrency))
	}
	if p.decoderLowmemSet {
		opts = append(opts, zstd.WithDecoderLowmem(p.decoderLowmem))
	}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}

type pooledReader struct {
	dec     *zstd.Decoder
	release func()
}

func (r *pooledReader) Read(p []byte) (int, error) {
	if r.dec == nil {
		return 0, io.ErrClosedPipe
	}
	return r.dec.Read(p)
}

func (r *pooledReader) Close() error {
	if r.dec == nil {
		return nil
	}
	r.release()
	r.dec = nil
	return nil
}

type errReadCloser struct {
	err error
}

func (e errReadCloser) Read([]byte) (int, error) { return 0, e.err }
func (e errReadCloser) Close() error             { return nil }
