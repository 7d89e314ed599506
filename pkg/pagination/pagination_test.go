package pagination

import "testing"

func TestParamsNormalize(t *testing.T) {
	cases := []struct {
		in   Params
		want Params
	}{
		{in: Params{}, want: Params{Page: 1, Limit: 20}},
		{in: Params{Page: -3, Limit: 500}, want: Params{Page: 1, Limit: 100}},
		{in: Params{Page: 4, Limit: 10}, want: Params{Page: 4, Limit: 10}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParamsOffset(t *testing.T) {
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
}

func TestNewPage(t *testing.T) {
	page := NewPage(Params{Page: 2, Limit: 20}, 41)
	if page.TotalPages != 3 || page.Total != 41 || page.Page != 2 || page.Limit != 20 {
		t.Fatalf("unexpected page %+v", page)
	}

	empty := NewPage(Params{}, 0)
	if empty.TotalPages != 0 {
		t.Fatalf("expected zero pages, got %d", empty.TotalPages)
	}
}
