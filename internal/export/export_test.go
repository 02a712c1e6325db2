package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteCSVFlattensNestedMaps(t *testing.T) {
	svc := &Service{Enabled: true, MaxRecords: 100}
	var buf bytes.Buffer

	err := svc.WriteCSV(&buf, []map[string]any{
		{"customer_id": 1, "name": "Acme", "stats": map[string]any{"open": 2}},
		{"customer_id": 2, "name": "Globex", "stats": map[string]any{"open": 0}},
	})
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	header := strings.Join(rows[0], ",")
	if header != "customer_id,name,stats_open" {
		t.Fatalf("expected sorted flattened header, got %q", header)
	}
	if rows[1][2] != "2" {
		t.Fatalf("expected nested value in row, got %q", rows[1][2])
	}
}

func TestWriteCSVDisabled(t *testing.T) {
	svc := &Service{Enabled: false}
	if err := svc.WriteCSV(&bytes.Buffer{}, nil); err == nil {
		t.Fatalf("expected error when disabled")
	}
}

func TestWriteJSONTruncates(t *testing.T) {
	svc := &Service{Enabled: true, MaxRecords: 2}
	var buf bytes.Buffer

	records := []map[string]any{{"id": 1.0}, {"id": 2.0}, {"id": 3.0}}
	if err := svc.WriteJSON(&buf, records); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected truncation to 2 records, got %d", len(out))
	}
}
