package google

import (
	"testing"
)

func TestParseCustomers(t *testing.T) {
	values := [][]interface{}{
		{1.0, "Ann"},
		{"2", " Bob "},
		{},
		{"", ""},
		{3.5, "fractional id"},
		{"x", "bad id"},
		{4.0, ""},
		{5.0},
	}
	res := parseCustomers(values)

	if len(res.Records) != 2 {
		t.Fatalf("records = %v, want 2", res.Records)
	}
	if res.Records[0].ID != 1 || res.Records[0].Name != "Ann" {
		t.Errorf("first = %+v", res.Records[0])
	}
	if res.Records[1].ID != 2 || res.Records[1].Name != "Bob" {
		t.Errorf("second = %+v", res.Records[1])
	}
	if res.Dropped != 4 {
		t.Errorf("Dropped = %d, want 4", res.Dropped)
	}
}

func TestParseTransactions(t *testing.T) {
	values := [][]interface{}{
		{10.0, 1.0, "2022-01-01", 5.0},
		{"11", "2", "2022-01-02", "3,5"},
		{12.0, 1.0, "01/02/2022", 1.0},
		{13.0, 1.0, "2022-01-03", "abc"},
		{14.0, 1.0, "2022-01-03"},
		{15.0, "", "2022-01-03", 2.0},
		{nil, nil, nil, nil},
	}
	res := parseTransactions(values)

	if len(res.Records) != 2 {
		t.Fatalf("records = %v, want 2", res.Records)
	}
	first := res.Records[0]
	if first.ID != 10 || first.CustomerID != 1 || first.Date != "2022-01-01" || first.Amount != 5 {
		t.Errorf("first = %+v", first)
	}
	if res.Records[1].Amount != 3.5 {
		t.Errorf("second amount = %v, want 3.5", res.Records[1].Amount)
	}
	if res.Dropped != 4 {
		t.Errorf("Dropped = %d, want 4", res.Dropped)
	}
}

func TestCellInt(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int64
		ok   bool
	}{
		{1.0, 1, true},
		{1e6, 1000000, true},
		{" 42 ", 42, true},
		{1.5, 0, false},
		{"1.0", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := cellInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("cellInt(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
