package database

import (
	"os"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- header\nCREATE TABLE a (id INT);\n\n  -- note; with semicolon\nCREATE INDEX b ON a(id);\n;")
	want := []string{"CREATE TABLE a (id INT)", "CREATE INDEX b ON a(id)"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statement %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSchemaFileParses(t *testing.T) {
	data, err := os.ReadFile("../../db/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	stmts := splitStatements(string(data))
	if len(stmts) < 11 {
		t.Fatalf("schema has %d statements", len(stmts))
	}
}
