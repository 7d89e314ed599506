package dbtypes

import "testing"

func TestStringArrayValueAndScan(t *testing.T) {
	arr := StringArray{"https://cdn/a.jpg", "https://cdn/b,c.png"}
	value, err := arr.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var decoded StringArray
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(decoded) != 2 || decoded[1] != "https://cdn/b,c.png" {
		t.Fatalf("unexpected decoded %v", decoded)
	}
}

func TestStringArrayScanEmpty(t *testing.T) {
	var arr StringArray
	if err := arr.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if arr == nil || len(arr) != 0 {
		t.Fatalf("expected empty array, got %v", arr)
	}

	if err := arr.Scan([]byte("null")); err != nil {
		t.Fatalf("scan null: %v", err)
	}
	if len(arr) != 0 {
		t.Fatalf("expected empty array, got %v", arr)
	}
}

func TestStringArrayScanUnsupported(t *testing.T) {
	var arr StringArray
	if err := arr.Scan(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
