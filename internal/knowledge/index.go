// Package knowledge indexes a directory tree of markdown notes so runs can
// pull local documentation into the prompt. Each immediate subdirectory is a
// category; the index lives in the shared SQLite database and is rebuilt
// whenever the tree changes.
package knowledge

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/codefionn/agentwerk/internal/task"
)

// Doc is one indexed markdown document.
type Doc struct {
	ID       int64
	Path     string // relative to the knowledge root
	Category string // first path segment, empty for root-level files
	Title    string
	Content  string
	ModTime  time.Time
}

// Index maintains the knowledge_docs table for a markdown directory.
type Index struct {
	db     *sql.DB
	root   string
	logger *zap.Logger

	watch *watcher
}

// NewIndex opens the index over the database at dbPath and indexes the
// markdown files under root. The database is shared with the memory store;
// WAL mode there makes the second connection safe.
func NewIndex(dbPath, root string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create knowledge dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	ix := &Index{db: db, root: root, logger: logger}
	if err := ix.Reindex(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_docs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	mtime DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_knowledge_docs_category ON knowledge_docs(category);
`

// Reindex rebuilds the table from the directory tree. The index is derived
// data, so a full rebuild keeps it consistent after renames and removals.
func (ix *Index) Reindex() error {
	docs, err := ix.scan()
	if err != nil {
		return err
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reindex: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM knowledge_docs"); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	for _, doc := range docs {
		_, err := tx.Exec(
			"INSERT INTO knowledge_docs (path, category, title, content, mtime) VALUES (?, ?, ?, ?, ?)",
			doc.Path, doc.Category, doc.Title, doc.Content, doc.ModTime,
		)
		if err != nil {
			return fmt.Errorf("index %s: %w", doc.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reindex: %w", err)
	}

	ix.logger.Debug("knowledge reindexed", zap.Int("docs", len(docs)))
	return nil
}

func (ix *Index) scan() ([]Doc, error) {
	var docs []Doc
	err := filepath.WalkDir(ix.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			return nil
		}

		rel, err := filepath.Rel(ix.root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}

		docs = append(docs, Doc{
			Path:     filepath.ToSlash(rel),
			Category: docCategory(rel),
			Title:    docTitle(string(content), entry.Name()),
			Content:  string(content),
			ModTime:  info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", ix.root, err)
	}
	return docs, nil
}

// docCategory is the first path segment of a relative doc path, or empty for
// files sitting directly in the root.
func docCategory(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}

// docTitle is the first markdown heading, falling back to the filename.
func docTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "# "); ok {
			if title := strings.TrimSpace(after); title != "" {
				return title
			}
		}
	}
	return strings.TrimSuffix(filename, ".md")
}

// Search returns docs matching every keyword of text, best first. An exact
// phrase hit in the title outranks one in the body; ties break on recency.
// Empty category means all categories.
func (ix *Index) Search(text, category string, limit int) ([]Doc, error) {
	if limit <= 0 {
		limit = 3
	}
	keywords := searchKeywords(text)
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []any

	phrase := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"
	args = append(args, phrase, phrase)

	for _, kw := range keywords {
		conditions = append(conditions, "lower(title || ' ' || content) LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	where := strings.Join(conditions, " AND ")
	if category != "" {
		where += " AND category = ?"
		args = append(args, category)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, path, category, title, content, mtime,
			(CASE WHEN lower(title) LIKE ? THEN 10 ELSE 0 END) +
			(CASE WHEN lower(content) LIKE ? THEN 5 ELSE 0 END) AS score
		FROM knowledge_docs
		WHERE %s
		ORDER BY score DESC, mtime DESC
		LIMIT ?`, where)

	rows, err := ix.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var doc Doc
		var score int
		if err := rows.Scan(&doc.ID, &doc.Path, &doc.Category, &doc.Title, &doc.Content, &doc.ModTime, &score); err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// searchKeywords lowercases and splits text, dropping short words and
// connectives that would match everything.
func searchKeywords(text string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(word) <= 2 || searchStopWords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

var searchStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

const snippetContentLimit = 600

// Snippets adapts search hits to prompt-context snippets. The doc title
// becomes the problem line and the clipped body the solution.
func (ix *Index) Snippets(text string, limit int) ([]task.Snippet, error) {
	docs, err := ix.Search(text, "", limit)
	if err != nil {
		return nil, err
	}

	snippets := make([]task.Snippet, 0, len(docs))
	for _, doc := range docs {
		content := doc.Content
		if len(content) > snippetContentLimit {
			clipped := []rune(content)
			if len(clipped) > snippetContentLimit {
				content = string(clipped[:snippetContentLimit]) + "..."
			}
		}
		snippets = append(snippets, task.Snippet{
			Problem:  doc.Title,
			Solution: content,
			Category: doc.Category,
		})
	}
	return snippets, nil
}

// Close stops the watcher, if running, and closes the database handle.
func (ix *Index) Close() error {
	if ix.watch != nil {
		ix.watch.stop()
		ix.watch = nil
	}
	return ix.db.Close()
}
