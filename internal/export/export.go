// Package export flattens domain records into CSV or JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

type Service struct {
	Enabled    bool
	MaxRecords int
}

// WriteCSV flattens each record (nested maps become underscore-joined
// columns) and writes a header plus one row per record.
func (s *Service) WriteCSV(w io.Writer, records []map[string]any) error {
	if !s.Enabled {
		return fmt.Errorf("export service is disabled")
	}
	records = s.truncate(records)

	flattened := make([]map[string]string, 0, len(records))
	columns := map[string]struct{}{}
	for _, rec := range records {
		flat := map[string]string{}
		flatten("", rec, flat)
		for k := range flat {
			columns[k] = struct{}{}
		}
		flattened = append(flattened, flat)
	}

	header := make([]string, 0, len(columns))
	for k := range columns {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, flat := range flattened {
		for i, col := range header {
			row[i] = flat[col]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) WriteJSON(w io.Writer, records []map[string]any) error {
	if !s.Enabled {
		return fmt.Errorf("export service is disabled")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.truncate(records))
}

func (s *Service) truncate(records []map[string]any) []map[string]any {
	if s.MaxRecords > 0 && len(records) > s.MaxRecords {
		return records[:s.MaxRecords]
	}
	return records
}

func flatten(prefix string, value map[string]any, out map[string]string) {
	for k, v := range value {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case []any:
			b, _ := json.Marshal(t)
			out[key] = string(b)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprintf("%v", t)
		}
	}
}
