package refstore

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
)

// readCSV loads a CSV extract. The first row is the header; short rows are
// tolerated (missing cells read back as "").
func readCSV(path string) (*refdata.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	header := records[0]
	rows := make([]refdata.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(refdata.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return refdata.New(header, rows), nil
}
