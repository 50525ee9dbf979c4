package models

import "testing"

func TestParseStatus(t *testing.T) {
	testCases := []struct {
		input    string
		expected Status
	}{
		{"in stock", StatusInStock},
		{"In Stock", StatusInStock},
		{"  in   stock ", StatusInStock},
		{"SOLD OUT", StatusSoldOut},
		{"ordered\n", StatusOrdered},
		{"", StatusUnknown},
		{"coming soon", StatusUnknown},
	}

	for _, tc := range testCases {
		if got := ParseStatus(tc.input); got != tc.expected {
			t.Errorf("ParseStatus(%q) = %q; want %q", tc.input, got, tc.expected)
		}
	}
}

func TestStatusEqual(t *testing.T) {
	if !Status("In Stock").Equal(Status("in stock ")) {
		t.Error(`"In Stock" and "in stock " should be the same status`)
	}
	if Status("in stock").Equal(StatusSoldOut) {
		t.Error("in stock and sold out should differ")
	}
}

func TestOrderResultString(t *testing.T) {
	for result, want := range map[OrderResult]string{Ordered: "ordered", Skipped: "skipped", Failed: "failed"} {
		if got := result.String(); got != want {
			t.Errorf("%d.String() = %q; want %q", result, got, want)
		}
	}
}
