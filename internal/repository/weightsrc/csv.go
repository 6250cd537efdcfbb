// Package weightsrc loads configured weight distributions from an external
// source into weighttable rows.
package weightsrc

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/weighttable"
)

const (
	colEntityType = "Entity"
	colConditions = "Condition"
)

// CSV loads weight rows from a CSV file. The file carries one row per
// entity type and condition set: an "Entity" column, a "Condition" column
// listing the set's fields separated by commas, and one column per field
// holding its weight.
type CSV struct {
	path string
	log  *zap.Logger
}

// NewCSV builds a CSV weight source.
func NewCSV(path string, log *zap.Logger) *CSV {
	return &CSV{path: path, log: log}
}

// Load reads and parses the file. Unknown weight columns are skipped with a
// warning; a malformed row fails the whole load.
func (c *CSV) Load() ([]weighttable.Row, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrWeightSource, c.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrWeightSource, c.path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", domain.ErrWeightSource, c.path)
	}

	header := records[0]
	entityIdx, condIdx := -1, -1
	fieldCols := make(map[int]entity.Field)
	for i, h := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(h), colEntityType):
			entityIdx = i
		case strings.EqualFold(strings.TrimSpace(h), colConditions):
			condIdx = i
		default:
			if f, ok := entity.FieldByLabel(h); ok {
				fieldCols[i] = f
			} else {
				c.log.Warn("weight source: skipping unknown column", zap.String("column", h))
			}
		}
	}
	if entityIdx < 0 || condIdx < 0 {
		return nil, fmt.Errorf("%w: %s missing %q or %q column", domain.ErrWeightSource, c.path, colEntityType, colConditions)
	}

	rows := make([]weighttable.Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		et, err := entity.Parse(rec[entityIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrWeightSource, c.path, line, err)
		}
		conds, err := parseConditions(rec[condIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrWeightSource, c.path, line, err)
		}
		weights := make(map[entity.Field]float64, len(conds))
		for i, field := range fieldCols {
			if i >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			w, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: weight %q for %s: %v", domain.ErrWeightSource, c.path, line, cell, field, err)
			}
			weights[field] = w
		}
		rows = append(rows, weighttable.Row{Entity: et, Conditions: conds, Weights: weights})
	}

	c.log.Info("weight source loaded",
		zap.String("path", c.path),
		zap.Int("rows", len(rows)))
	return rows, nil
}

func parseConditions(cell string) ([]entity.Field, error) {
	parts := strings.Split(cell, ",")
	conds := make([]entity.Field, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, ok := entity.FieldByLabel(p)
		if !ok {
			return nil, fmt.Errorf("unknown condition field %q", p)
		}
		conds = append(conds, f)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("empty condition set")
	}
	return conds, nil
}
