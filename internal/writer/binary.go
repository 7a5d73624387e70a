package writer

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

// cborEncMode uses Core Deterministic Encoding so identical documents
// produce identical files.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("writer: CBOR encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("writer: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("writer: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("writer: zstd decoder initialization failed: " + err.Error())
	}
}

// binaryFormat is a serialisation codec optionally wrapped in a
// compression layer.
type binaryFormat struct {
	name       string
	ext        string
	marshal    func(v any) ([]byte, error)
	unmarshal  func(data []byte, v any) error
	compress   func(w io.Writer, data []byte) error
	decompress func(r io.Reader) ([]byte, error)
}

func binaryFormats() []*binaryFormat {
	return []*binaryFormat{
		{name: "msgpack", ext: "mpk", marshal: msgpack.Marshal, unmarshal: msgpack.Unmarshal},
		{name: "msgpack-lz4", ext: "mpk.lz4", marshal: msgpack.Marshal, unmarshal: msgpack.Unmarshal,
			compress: compressLZ4, decompress: decompressLZ4},
		{name: "cbor", ext: "cbor", marshal: cborEncMode.Marshal, unmarshal: cborDecMode.Unmarshal},
		{name: "cbor-zstd", ext: "cbor.zst", marshal: cborEncMode.Marshal, unmarshal: cborDecMode.Unmarshal,
			compress: compressZstd, decompress: decompressZstd},
	}
}

func compressLZ4(w io.Writer, data []byte) error {
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}
	return zw.Close()
}

func decompressLZ4(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(lz4.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return data, nil
}

func compressZstd(w io.Writer, data []byte) error {
	_, err := w.Write(zstdEncoder.EncodeAll(data, nil))
	return err
}

func decompressZstd(r io.Reader) ([]byte, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return data, nil
}

func (f *binaryFormat) Name() string      { return f.name }
func (f *binaryFormat) Extension() string { return f.ext }

func (f *binaryFormat) Write(path string, rs *solver.ResultSet, dev *device.Device, scen *scenario.Scenario) error {
	return f.save(path, resultsDocument(rs, dev, scen))
}

func (f *binaryFormat) Autosave(path string, data *solver.SimData, dev *device.Device, scen *scenario.Scenario) error {
	return f.save(path, checkpointDocument(data, dev, scen))
}

func (f *binaryFormat) save(path string, doc document) error {
	data, err := f.marshal(&doc)
	if err != nil {
		return &dynamo.IOError{Op: "encode", Path: path, Wrapped: err}
	}
	return writeAtomic(path, func(w io.Writer) error {
		if f.compress != nil {
			return f.compress(w, data)
		}
		_, err := w.Write(data)
		return err
	})
}

func (f *binaryFormat) load(path string) (*document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &dynamo.IOError{Op: "read", Path: path, Wrapped: err}
	}
	if f.decompress != nil {
		if raw, err = f.decompress(bytes.NewReader(raw)); err != nil {
			return nil, &dynamo.IOError{Op: "decode", Path: path, Wrapped: err}
		}
	}
	var doc document
	if err := f.unmarshal(raw, &doc); err != nil {
		return nil, &dynamo.IOError{Op: "decode", Path: path, Wrapped: err}
	}
	return &doc, nil
}

func (f *binaryFormat) loadCheckpoint(path string) (*checkpointDoc, error) {
	doc, err := f.load(path)
	if err != nil {
		return nil, err
	}
	if doc.Checkpoint == nil {
		return nil, &dynamo.IOError{Op: "read", Path: path, Wrapped: ErrNoCheckpoint}
	}
	if err := doc.Checkpoint.verify(); err != nil {
		return nil, &dynamo.IOError{Op: "verify", Path: path, Wrapped: err}
	}
	if err := doc.Checkpoint.check(); err != nil {
		return nil, &dynamo.IOError{Op: "verify", Path: path, Wrapped: err}
	}
	return doc.Checkpoint, nil
}

func (f *binaryFormat) ReadResults(path string) (*solver.ResultSet, error) {
	doc, err := f.load(path)
	if err != nil {
		return nil, err
	}
	rs, err := doc.resultSet()
	if err != nil {
		return nil, &dynamo.IOError{Op: "decode", Path: path, Wrapped: err}
	}
	return rs, nil
}

func (f *binaryFormat) ReadDensity(path string) ([]qm.Operator, error) {
	cp, err := f.loadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	rho, err := cp.density()
	if err != nil {
		return nil, &dynamo.IOError{Op: "decode", Path: path, Wrapped: err}
	}
	return rho, nil
}

func (f *binaryFormat) ReadField(path, field string) ([]float64, error) {
	var pick func(*checkpointDoc) []float64
	switch field {
	case "e":
		pick = func(cp *checkpointDoc) []float64 { return cp.E }
	case "h":
		pick = func(cp *checkpointDoc) []float64 { return cp.H }
	case "p":
		pick = func(cp *checkpointDoc) []float64 { return cp.P }
	default:
		return nil, fmt.Errorf("field %q: %w", field, dynamo.ErrInvalidParameter)
	}
	cp, err := f.loadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	return pick(cp), nil
}

func (f *binaryFormat) ReadTime(path string) (float64, error) {
	cp, err := f.loadCheckpoint(path)
	if err != nil {
		return 0, err
	}
	return cp.Time, nil
}

func (f *binaryFormat) ReadGrid(path string) (dx, dt float64, err error) {
	cp, err := f.loadCheckpoint(path)
	if err != nil {
		return 0, 0, err
	}
	return cp.Dx, cp.Dt, nil
}
