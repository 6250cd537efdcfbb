package refstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
)

// readParquet loads a parquet extract through the generic row reader,
// stringifying every leaf value. Nulls read back as "".
func readParquet(path string) (*refdata.Dataset, error) {
	h, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	// Leaf index -> column name.
	schemaCols := h.pf.Schema().Columns()
	names := make([]string, len(schemaCols))
	columns := make([]string, 0, len(schemaCols))
	for i, colPath := range schemaCols {
		if len(colPath) == 0 {
			continue
		}
		names[i] = colPath[0]
		columns = append(columns, colPath[0])
	}

	var dataRows []refdata.Row
	for _, rg := range h.pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 1000)

		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				row := make(refdata.Row, len(columns))
				for _, v := range buf[i] {
					col := v.Column()
					if col < 0 || col >= len(names) || names[col] == "" {
						continue
					}
					if v.IsNull() {
						continue
					}
					row[names[col]] = v.String()
				}
				dataRows = append(dataRows, row)
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return refdata.New(columns, dataRows), nil
}

// parquetHandle wraps parquet.File with the underlying os.File so both get
// closed together.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
