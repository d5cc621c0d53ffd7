// Package migrations embeds the SQL schema of both databases.
// The backends apply them and record each version with its checksum, so an
// applied file that was edited afterwards is detected instead of silently skipped.
package migrations

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// ErrChecksumMismatch is returned when an applied migration differs from the embedded file.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// Migration is one SQL file.
type Migration struct {
	Version  string // file name without extension, e.g. "001_contests"
	SQL      string
	Checksum string // hex sha256 of SQL
}

// Statements splits the file into single statements for drivers without multi-statement Exec.
func (m Migration) Statements() []string {
	return Split(m.SQL)
}

// Postgres returns the PostgreSQL migrations in version order.
func Postgres() ([]Migration, error) {
	return load(files, "postgres")
}

// Clickhouse returns the ClickHouse migrations in version order.
func Clickhouse() ([]Migration, error) {
	return load(files, "clickhouse")
}

func load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", dir, err)
	}

	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		sum := sha256.Sum256(data)
		out = append(out, Migration{
			Version:  strings.TrimSuffix(name, ".sql"),
			SQL:      string(data),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Split splits SQL on top-level semicolons. Semicolons inside single-quoted
// strings and -- comments do not split; comment-only statements are dropped.
func Split(sql string) []string {
	var (
		stmts   []string
		current strings.Builder
		content bool // current holds something besides whitespace and comments
	)
	flush := func() {
		if content {
			stmts = append(stmts, strings.TrimSpace(current.String()))
		}
		current.Reset()
		content = false
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			// Skip to end of line.
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
		case ch == '\'':
			current.WriteByte(ch)
			content = true
			for i++; i < len(sql); i++ {
				current.WriteByte(sql[i])
				if sql[i] == '\'' {
					if i+1 < len(sql) && sql[i+1] == '\'' {
						i++
						current.WriteByte(sql[i])
						continue
					}
					break
				}
			}
		case ch == ';':
			flush()
		default:
			current.WriteByte(ch)
			if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
				content = true
			}
		}
	}
	flush()
	return stmts
}
