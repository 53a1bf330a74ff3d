package knowledge

import (
	"testing"

	"chronicle/internal/store"
)

func TestDescribe(t *testing.T) {
	if got := DescribeEntity(store.KindLocation, "Oakhaven", "A fishing village"); got != "There is a location called Oakhaven. It can be described as: A fishing village" {
		t.Fatalf("unexpected location text %q", got)
	}
	if got := DescribeEntity(store.KindPlayer, "Ayla", "A ranger"); got != "There is a player called Ayla. They can be described as: A ranger" {
		t.Fatalf("unexpected player text %q", got)
	}
	if got := DescribeEvent(nil, "a storm rolled in"); got != "In the world, a storm rolled in" {
		t.Fatalf("unexpected event text %q", got)
	}
	if got := DescribeEvent([]string{"Oakhaven", "Docks"}, "a storm rolled in"); got != "In Oakhaven, Docks, a storm rolled in" {
		t.Fatalf("unexpected event text %q", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Eldoria", "eldoria"},
		{"The Shattered Isles", "the-shattered-isles"},
		{"  Café -- Noir! ", "caf-noir"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
