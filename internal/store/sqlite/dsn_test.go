package sqlite

import "testing"

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "memory", input: "sqlite://:memory:", want: ":memory:"},
		{name: "absolute path", input: "sqlite:///var/lib/chronicle.db", want: "/var/lib/chronicle.db"},
		{name: "explicit relative", input: "sqlite://./chronicle.db", want: "./chronicle.db"},
		{name: "bare relative", input: "sqlite://chronicle.db", want: "./chronicle.db"},
		{name: "query string", input: "sqlite://data/chronicle.db?_pragma=foo", want: "./data/chronicle.db?_pragma=foo"},
		{name: "escaped path", input: "sqlite://my%20world.db", want: "./my world.db"},
		{name: "memory with options", input: "sqlite://:memory:?_pragma=foreign_keys(1)", want: ":memory:?_pragma=foreign_keys(1)"},
		{name: "wrong scheme", input: "postgres://localhost/chronicle", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDSN(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseDSN(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
