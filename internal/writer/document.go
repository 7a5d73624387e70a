package writer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/blake3"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

// CheckpointVersion is the layout version of the checkpoint section.
const CheckpointVersion = 1

// document is the file layout shared by the binary formats. A result file
// fills Records, an autosave file fills Checkpoint.
type document struct {
	Device   string `msgpack:"device" cbor:"device"`
	Scenario string `msgpack:"scenario" cbor:"scenario"`
	Solver   string `msgpack:"solver,omitempty" cbor:"solver,omitempty"`

	ElapsedNs     int64       `msgpack:"elapsed_ns" cbor:"elapsed_ns"`
	TimestepSize  float64     `msgpack:"timestep_size" cbor:"timestep_size"`
	GridpointSize float64     `msgpack:"gridpoint_size" cbor:"gridpoint_size"`
	NumTimesteps  int         `msgpack:"num_timesteps" cbor:"num_timesteps"`
	NumGridpoints int         `msgpack:"num_gridpoints" cbor:"num_gridpoints"`
	EndTime       float64     `msgpack:"end_time" cbor:"end_time"`
	DeviceLength  float64     `msgpack:"device_length" cbor:"device_length"`
	Regions       []regionDoc `msgpack:"regions" cbor:"regions"`

	Records    []recordDoc    `msgpack:"records,omitempty" cbor:"records,omitempty"`
	Checkpoint *checkpointDoc `msgpack:"checkpoint,omitempty" cbor:"checkpoint,omitempty"`
}

type regionDoc struct {
	Name     string  `msgpack:"name" cbor:"name"`
	Material string  `msgpack:"material" cbor:"material"`
	Start    float64 `msgpack:"start" cbor:"start"`
	End      float64 `msgpack:"end" cbor:"end"`
}

type recordDoc struct {
	Name     string    `msgpack:"name" cbor:"name"`
	Interval float64   `msgpack:"interval" cbor:"interval"`
	Position *float64  `msgpack:"position,omitempty" cbor:"position,omitempty"`
	Rows     int       `msgpack:"rows" cbor:"rows"`
	Cols     int       `msgpack:"cols" cbor:"cols"`
	Complex  bool      `msgpack:"complex" cbor:"complex"`
	Real     []float64 `msgpack:"real" cbor:"real"`
	Imag     []float64 `msgpack:"imag,omitempty" cbor:"imag,omitempty"`
}

// checkpointDoc stores the density matrices flattened: Levels[i] is the
// level count at grid point i (0 for passive points), Main and Off hold the
// diagonals and interleaved real/imaginary coherences back to back.
type checkpointDoc struct {
	Version int       `msgpack:"version" cbor:"version"`
	Step    int       `msgpack:"step" cbor:"step"`
	Time    float64   `msgpack:"time" cbor:"time"`
	Dt      float64   `msgpack:"dt" cbor:"dt"`
	Dx      float64   `msgpack:"dx" cbor:"dx"`
	E       []float64 `msgpack:"e" cbor:"e"`
	H       []float64 `msgpack:"h" cbor:"h"`
	P       []float64 `msgpack:"p" cbor:"p"`
	Levels  []int     `msgpack:"levels" cbor:"levels"`
	Main    []float64 `msgpack:"main" cbor:"main"`
	Off     []float64 `msgpack:"off" cbor:"off"`
	Digest  []byte    `msgpack:"digest" cbor:"digest"`
}

func header(dev *device.Device, scen *scenario.Scenario) document {
	doc := document{Device: dev.Name, Scenario: scen.Name, EndTime: scen.EndTime, DeviceLength: dev.Length()}
	for _, r := range dev.Regions() {
		doc.Regions = append(doc.Regions, regionDoc{Name: r.Name, Material: r.Material.Name, Start: r.Start, End: r.End})
	}
	return doc
}

func resultsDocument(rs *solver.ResultSet, dev *device.Device, scen *scenario.Scenario) document {
	doc := header(dev, scen)
	doc.Solver = rs.Solver
	doc.ElapsedNs = rs.Elapsed.Nanoseconds()
	doc.TimestepSize = rs.Grid.Dt
	doc.GridpointSize = rs.Grid.Dx
	doc.NumTimesteps = rs.Grid.NumSteps
	doc.NumGridpoints = rs.Grid.NumGridpoints
	for _, r := range rs.Results {
		doc.Records = append(doc.Records, recordDoc{
			Name:     r.Name,
			Interval: r.Interval,
			Position: r.Position,
			Rows:     r.Rows,
			Cols:     r.Cols,
			Complex:  r.Complex(),
			Real:     r.Real,
			Imag:     r.Imag,
		})
	}
	return doc
}

func (doc *document) resultSet() (*solver.ResultSet, error) {
	rs := &solver.ResultSet{
		Device:   doc.Device,
		Scenario: doc.Scenario,
		Solver:   doc.Solver,
		Elapsed:  time.Duration(doc.ElapsedNs),
		Grid: scenario.Grid{
			Dx:            doc.GridpointSize,
			Dt:            doc.TimestepSize,
			NumSteps:      doc.NumTimesteps,
			NumGridpoints: doc.NumGridpoints,
		},
		EndTime: doc.EndTime,
		Length:  doc.DeviceLength,
	}
	for _, r := range doc.Records {
		obs, err := scenario.ParseObservable(r.Name)
		if err != nil {
			return nil, err
		}
		if len(r.Real) != r.Rows*r.Cols || (r.Complex && len(r.Imag) != len(r.Real)) {
			return nil, fmt.Errorf("record %q: %d values for %dx%d: %w", r.Name, len(r.Real), r.Rows, r.Cols, dynamo.ErrInvalidParameter)
		}
		res := &solver.Result{
			Name:       r.Name,
			Observable: obs,
			Position:   r.Position,
			Interval:   r.Interval,
			Rows:       r.Rows,
			Cols:       r.Cols,
			Real:       r.Real,
		}
		if r.Complex {
			res.Imag = r.Imag
		}
		rs.Results = append(rs.Results, res)
	}
	return rs, nil
}

func checkpointDocument(d *solver.SimData, dev *device.Device, scen *scenario.Scenario) document {
	doc := header(dev, scen)
	doc.TimestepSize = d.Dt
	doc.GridpointSize = d.Dx
	doc.NumGridpoints = len(d.E)

	cp := &checkpointDoc{
		Version: CheckpointVersion,
		Step:    d.Step,
		Time:    d.Time,
		Dt:      d.Dt,
		Dx:      d.Dx,
		E:       d.E,
		H:       d.H,
		P:       d.P,
		Levels:  make([]int, len(d.Density)),
	}
	for i, rho := range d.Density {
		cp.Levels[i] = rho.Levels()
		cp.Main = append(cp.Main, rho.Main...)
		for _, c := range rho.Off {
			cp.Off = append(cp.Off, real(c), imag(c))
		}
	}
	cp.Digest = cp.digest()
	doc.Checkpoint = cp
	return doc
}

// digest hashes every numeric field in a fixed order.
func (cp *checkpointDoc) digest() []byte {
	var buf bytes.Buffer
	u64 := func(v uint64) { buf.Write(binary.LittleEndian.AppendUint64(nil, v)) }
	floats := func(vs []float64) {
		u64(uint64(len(vs)))
		for _, v := range vs {
			u64(math.Float64bits(v))
		}
	}

	u64(uint64(cp.Version))
	u64(uint64(cp.Step))
	floats([]float64{cp.Time, cp.Dt, cp.Dx})
	floats(cp.E)
	floats(cp.H)
	floats(cp.P)
	u64(uint64(len(cp.Levels)))
	for _, l := range cp.Levels {
		u64(uint64(l))
	}
	floats(cp.Main)
	floats(cp.Off)

	sum := blake3.Sum256(buf.Bytes())
	return sum[:]
}

func (cp *checkpointDoc) verify() error {
	if cp.Version != CheckpointVersion {
		return fmt.Errorf("version %d, want %d: %w", cp.Version, CheckpointVersion, ErrVersion)
	}
	if !bytes.Equal(cp.digest(), cp.Digest) {
		return ErrDigest
	}
	return nil
}

// check verifies that the field arrays cover the same grid points and that
// Levels accounts for exactly the packed density elements.
func (cp *checkpointDoc) check() error {
	n := len(cp.E)
	if len(cp.H) != n || len(cp.P) != n || len(cp.Levels) != n {
		return fmt.Errorf("e, h, p and levels have %d, %d, %d and %d points: %w",
			n, len(cp.H), len(cp.P), len(cp.Levels), ErrCorruptCheckpoint)
	}
	mains, offs := 0, 0
	for i, l := range cp.Levels {
		if l < 0 || l > len(cp.Main) {
			return fmt.Errorf("level count %d at %d: %w", l, i, ErrCorruptCheckpoint)
		}
		mains += l
		offs += l * (l - 1)
	}
	if mains != len(cp.Main) || offs != len(cp.Off) {
		return fmt.Errorf("levels describe %d diagonal and %d coherence values, found %d and %d: %w",
			mains, offs, len(cp.Main), len(cp.Off), ErrCorruptCheckpoint)
	}
	return nil
}

func (cp *checkpointDoc) density() ([]qm.Operator, error) {
	if err := cp.check(); err != nil {
		return nil, err
	}
	out := make([]qm.Operator, len(cp.Levels))
	mainAt, offAt := 0, 0
	for i, n := range cp.Levels {
		if n == 0 {
			continue
		}
		nOff := n * (n - 1) / 2
		off := make([]complex128, nOff)
		for k := range off {
			off[k] = complex(cp.Off[offAt+2*k], cp.Off[offAt+2*k+1])
		}
		rho, err := qm.NewOperator(cp.Main[mainAt:mainAt+n], off)
		if err != nil {
			return nil, fmt.Errorf("density at %d: %w", i, err)
		}
		out[i] = rho
		mainAt += n
		offAt += 2 * nOff
	}
	return out, nil
}
