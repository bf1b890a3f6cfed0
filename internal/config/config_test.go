package config

import (
	"strings"
	"testing"
)

func TestParseBasic(t *testing.T) {
	in := `# a comment
example.com
10.0.0.1  router
>Datacenter A
db1.internal
db2.internal  Database Two
>
after-group
`
	entries, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{
		{Host: "example.com", Name: "example.com"},
		{Host: "10.0.0.1", Name: "router"},
		{Host: "db1.internal", Name: "   db1.internal", Header: "Datacenter A"},
		{Host: "db2.internal", Name: "   Database Two", Header: "Datacenter A"},
		{Host: "after-group", Name: "after-group"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestParseRejectsNonASCII(t *testing.T) {
	_, err := Parse(strings.NewReader("café.example\n"))
	if err == nil {
		t.Fatal("expected error for non-ASCII line")
	}
}

func TestTrimTrailingWhitespaceExact(t *testing.T) {
	entries, err := Parse(strings.NewReader("host.example   trailing-name   \n"))
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Name != "trailing-name" {
		t.Fatalf("Name = %q, want %q", entries[0].Name, "trailing-name")
	}
}
