package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"trainer/pkg/serrors"
)

// ReadCSV parses a housing table from r. The header must match Columns
// exactly. Empty numeric cells parse as NaN (total_bedrooms carries missing
// values in the real data); an empty table is rejected.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "could not read csv header")
	}
	for i, col := range Columns {
		if header[i] != col {
			return nil, serrors.With(serrors.ErrBadRequest,
				"unexpected csv header: column %d is %q, want %q", i, header[i], col)
		}
	}

	var table Table
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, serrors.Wrap(serrors.ErrBadRequest, err, "could not read csv line %d", line)
		}

		row, err := parseRow(record)
		if err != nil {
			return nil, serrors.Wrap(serrors.ErrBadRequest, err, "could not parse csv line %d", line)
		}
		table = append(table, row)
	}

	if len(table) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "csv contains no data rows")
	}

	return table, nil
}

func parseRow(record []string) (Row, error) {
	nums := make([]float64, len(Columns)-1)
	for i := range nums {
		cell := record[i]
		if cell == "" {
			nums[i] = math.NaN()

			continue
		}

		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %q: %w", Columns[i], err)
		}
		nums[i] = v
	}

	ocean := record[len(Columns)-1]
	if ocean == "" {
		return Row{}, fmt.Errorf("column %q is empty", ColOceanProximity)
	}

	// Only total_bedrooms may be missing.
	for i, v := range nums {
		if math.IsNaN(v) && Columns[i] != ColTotalBedrooms {
			return Row{}, fmt.Errorf("column %q is empty", Columns[i])
		}
	}

	return Row{
		Longitude:        nums[0],
		Latitude:         nums[1],
		HousingMedianAge: nums[2],
		TotalRooms:       nums[3],
		TotalBedrooms:    nums[4],
		Population:       nums[5],
		Households:       nums[6],
		MedianIncome:     nums[7],
		MedianHouseValue: nums[8],
		OceanProximity:   ocean,
	}, nil
}

// WriteCSV writes the table to w with the standard header. NaN cells render
// empty, so a written table reads back identically.
func WriteCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}

	record := make([]string, len(Columns))
	for i, row := range table {
		nums := []float64{
			row.Longitude, row.Latitude, row.HousingMedianAge, row.TotalRooms,
			row.TotalBedrooms, row.Population, row.Households, row.MedianIncome,
			row.MedianHouseValue,
		}
		for j, v := range nums {
			if math.IsNaN(v) {
				record[j] = ""

				continue
			}
			record[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		record[len(Columns)-1] = row.OceanProximity

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("could not write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("could not flush csv: %w", err)
	}

	return nil
}
