package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		want int
	}{
		{"single", "create table t(id text);", 1},
		{"two", "create table a(id text);\ncreate table b(id text);", 2},
		{"trailing without semicolon", "create table a(id text);\nselect 1", 2},
		{"semicolon in string literal", "insert into r(name) values ('a;b'); select 1;", 2},
		{"empty", "   \n  ", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitStatements(tc.sql)
			var nonEmpty int
			for _, s := range got {
				if strings.TrimSpace(s) != "" {
					nonEmpty++
				}
			}
			if nonEmpty != tc.want {
				t.Fatalf("got %d statements, want %d: %q", nonEmpty, tc.want, got)
			}
		})
	}
}

func TestCollectSQLOrdersByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_pqrs.up.sql", "0001_users.up.sql", "0002_pqrs.down.sql", "notes.txt"} {
		writeFile(t, dir, name, "select 1;")
	}

	files, err := collectSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files: %v", len(files), files)
	}
	if files[0].Base != "0001_users.up.sql" || files[1].Base != "0002_pqrs.up.sql" {
		t.Fatalf("wrong order: %v", files)
	}
}

func TestCollectSQLMissingDir(t *testing.T) {
	files, err := collectSQL("/does/not/exist", ".sql")
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("got %d files", len(files))
	}
}
