package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

// csvFormat writes results in long form, one sample value per line. It
// cannot hold checkpoints and has no reader.
type csvFormat struct{}

func (csvFormat) Name() string      { return "csv" }
func (csvFormat) Extension() string { return "csv" }

func (csvFormat) Write(path string, rs *solver.ResultSet, dev *device.Device, scen *scenario.Scenario) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"record", "sample", "index", "real", "imag"}); err != nil {
			return err
		}
		format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
		for _, r := range rs.Results {
			for i := 0; i < r.Rows; i++ {
				for j := 0; j < r.Cols; j++ {
					k := i*r.Cols + j
					im := ""
					if r.Imag != nil {
						im = format(r.Imag[k])
					}
					row := []string{r.Name, strconv.Itoa(i), strconv.Itoa(j), format(r.Real[k]), im}
					if err := cw.Write(row); err != nil {
						return err
					}
				}
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (csvFormat) Autosave(path string, _ *solver.SimData, _ *device.Device, _ *scenario.Scenario) error {
	return &dynamo.IOError{Op: "autosave", Path: path, Wrapped: fmt.Errorf("csv checkpoints: %w", errors.ErrUnsupported)}
}
