package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

var csvHeader = []string{"TCK File", "Fiber Count", "Retention", "Note"}

// WriteCSV writes the count table. Unknown counts are written as n/a and
// retention as a plain ratio.
func WriteCSV(w io.Writer, d *Data) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "unable to write csv header")
	}

	for i, row := range d.Rows {
		count := NotAvailable
		if row.Count != nil {
			count = strconv.Itoa(*row.Count)
		}

		retention := ""
		if ratio, ok := d.Retention(i); ok {
			retention = strconv.FormatFloat(ratio, 'f', 4, 64)
		}

		if err := cw.Write([]string{row.File, count, retention, row.Note}); err != nil {
			return errors.Wrapf(err, "unable to write row %s", row.File)
		}
	}

	cw.Flush()

	return errors.Wrap(cw.Error(), "unable to flush csv")
}

// SaveCSV writes the count table to path.
func SaveCSV(path string, d *Data) error {
	return Save(path, d, WriteCSV)
}
