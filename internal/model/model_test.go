package model

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World!", "hello-world"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"Go 1.25 release notes", "go-1-25-release-notes"},
		{"Crème brûlée", "crème-brûlée"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 5, 1},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{11, 5, 3},
		{3, 0, 1},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestPageNavigation(t *testing.T) {
	p := NewPage([]string{"a"}, 2, 5, 11)

	if p.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", p.TotalPages)
	}
	if !p.HasPrev() || !p.HasNext() {
		t.Errorf("middle page should have prev and next")
	}
	if p.PrevNumber() != 1 || p.NextNumber() != 3 {
		t.Errorf("PrevNumber/NextNumber = %d/%d, want 1/3", p.PrevNumber(), p.NextNumber())
	}

	first := NewPage[string](nil, 1, 5, 0)
	if first.HasPrev() || first.HasNext() {
		t.Errorf("single empty page should have neither prev nor next")
	}
}
