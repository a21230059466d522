package model

import (
	"encoding/json"
	"testing"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    Cents
		wantErr bool
	}{
		{in: "19", want: 1900},
		{in: "19.9", want: 1990},
		{in: "19.99", want: 1999},
		{in: "19,99", want: 1999},
		{in: "0.005", want: 1},
		{in: "0.004", want: 0},
		{in: "19.999", want: 2000},
		{in: ".5", want: 50},
		{in: "-3.10", want: -310},
		{in: " 7.00 ", want: 700},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "1e3", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCents(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCents(%q) expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCents(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCents_String(t *testing.T) {
	if s := Cents(1990).String(); s != "19.90" {
		t.Errorf("String() = %q, want 19.90", s)
	}
	if s := Cents(5).String(); s != "0.05" {
		t.Errorf("String() = %q, want 0.05", s)
	}
	if s := Cents(-120).String(); s != "-1.20" {
		t.Errorf("String() = %q, want -1.20", s)
	}
}

func TestCents_JSON(t *testing.T) {
	var req CreateProductRequest
	body := `{"name":"Widget","price":12.345,"cost":"4,5"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if req.Price != 1235 {
		t.Errorf("Price = %d, want 1235", req.Price)
	}
	if req.Cost != 450 {
		t.Errorf("Cost = %d, want 450", req.Cost)
	}

	out, err := json.Marshal(struct {
		P Cents `json:"p"`
	}{P: 1000})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	if string(out) != `{"p":10.00}` {
		t.Errorf("Marshal() = %s, want {\"p\":10.00}", out)
	}
}

func TestProductPatch_Absent(t *testing.T) {
	var patch ProductPatch
	if err := json.Unmarshal([]byte(`{"price":null}`), &patch); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if !patch.Empty() {
		t.Error("patch with only null fields should be empty")
	}

	if err := json.Unmarshal([]byte(`{"price":"2.50"}`), &patch); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if patch.Price == nil || *patch.Price != 250 {
		t.Errorf("Price = %v, want 250", patch.Price)
	}
}
