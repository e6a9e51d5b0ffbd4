package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/threatgraph/pkg/scene"
)

// SchemaVersion is stored in the meta table.
const SchemaVersion = 1

var schema = []string{
	`CREATE TABLE nodes (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		label TEXT,
		x REAL NOT NULL,
		y REAL NOT NULL,
		fixed INTEGER NOT NULL DEFAULT 0,
		grouping_id TEXT
	)`,
	`CREATE TABLE links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		relation TEXT,
		FOREIGN KEY (source_id) REFERENCES nodes(id),
		FOREIGN KEY (target_id) REFERENCES nodes(id)
	)`,
	`CREATE TABLE ticks (
		position REAL NOT NULL,
		label TEXT NOT NULL
	)`,
	`CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`,
	`CREATE INDEX idx_links_source ON links(source_id)`,
	`CREATE INDEX idx_links_target ON links(target_id)`,
	`CREATE INDEX idx_nodes_type ON nodes(type)`,
}

// SaveSQLite writes the laid-out graph of f to a fresh SQLite database at
// path. An existing file is replaced.
func SaveSQLite(ctx context.Context, path string, f Frame) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := insertNodes(ctx, tx, f); err != nil {
		return fmt.Errorf("insert nodes: %w", err)
	}
	if err := insertLinks(ctx, tx, f); err != nil {
		return fmt.Errorf("insert links: %w", err)
	}
	if err := insertTicks(ctx, tx, f); err != nil {
		return fmt.Errorf("insert ticks: %w", err)
	}
	if err := insertMeta(ctx, tx, f); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return db.Close()
}

func insertNodes(ctx context.Context, tx *sql.Tx, f Frame) error {
	labels := make(map[string]string)
	for _, it := range f.Of(scene.KindNodeLabel) {
		labels[it.NodeID] = it.Text
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (id, type, label, x, y, fixed, grouping_id) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, it := range f.Of(scene.KindNode) {
		fixed := 0
		if it.Fixed {
			fixed = 1
		}
		var grouping sql.NullString
		if it.GroupingID != "" {
			grouping = sql.NullString{String: it.GroupingID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, it.NodeID, it.NodeType, labels[it.NodeID], it.X, it.Y, fixed, grouping); err != nil {
			return fmt.Errorf("node %s: %w", it.NodeID, err)
		}
	}
	return nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, f Frame) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO links (source_id, target_id, relation) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, it := range f.Of(scene.KindLink) {
		if _, err := stmt.ExecContext(ctx, it.SourceID, it.TargetID, it.Text); err != nil {
			return err
		}
	}
	return nil
}

func insertTicks(ctx context.Context, tx *sql.Tx, f Frame) error {
	for _, it := range f.Of(scene.KindAxis) {
		if it.Subtitle != "time" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO ticks (position, label) VALUES (?, ?)`, it.Y, it.Text); err != nil {
			return err
		}
	}
	return nil
}

func insertMeta(ctx context.Context, tx *sql.Tx, f Frame) error {
	meta := map[string]string{
		"schema_version": strconv.Itoa(SchemaVersion),
		"mode":           f.Mode.Token(),
		"mount":          f.Mount,
		"transform":      f.Transform.String(),
		"label":          f.Label,
		"width":          strconv.FormatFloat(f.W, 'f', -1, 64),
		"height":         strconv.FormatFloat(f.H, 'f', -1, 64),
		"exported_at":    time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}
	return nil
}
