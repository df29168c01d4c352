package ads

import "testing"

func TestIsUnknownAdvertiser(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"Unknown Advertiser", true},
		{"unknown advertiser", true},
		{"Unknown", true},
		{"Acme Corp", false},
		{"Unknown Pleasures Records", false},
	}
	for _, tc := range tests {
		if got := IsUnknownAdvertiser(tc.in); got != tc.want {
			t.Fatalf("IsUnknownAdvertiser(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsPlaceholderText(t *testing.T) {
	for _, in := range []string{"", " ", "...", " ... "} {
		if !IsPlaceholderText(in) {
			t.Fatalf("expected %q to be a placeholder", in)
		}
	}
	if IsPlaceholderText("Incorporate in Spain") {
		t.Fatal("real copy reported as placeholder")
	}
}

func TestVariationCount(t *testing.T) {
	if got := (RawAd{}).VariationCount(); got != 1 {
		t.Fatalf("zero variations should count as 1, got %d", got)
	}
	if got := (RawAd{Variations: 4}).VariationCount(); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}
