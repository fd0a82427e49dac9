// Package store persists reading positions per reader and book.
package store

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"pview/book"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	reader TEXT NOT NULL,
	book TEXT NOT NULL,
	current_index INTEGER NOT NULL,
	updated INTEGER NOT NULL,
	PRIMARY KEY (reader, book)
);
CREATE TABLE IF NOT EXISTS offsets (
	reader TEXT NOT NULL,
	book TEXT NOT NULL,
	document INTEGER NOT NULL,
	scroll_offset REAL NOT NULL,
	PRIMARY KEY (reader, book, document)
);
`

// Store keeps positions in sqlite database. Single connection is shared and
// serialized.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	log  *zap.Logger
}

// Open opens (creating when necessary) database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("unable to open positions database: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to prepare positions database: %w", err), conn.Close())
	}
	return &Store{conn: conn, log: log.Named("store")}, nil
}

// Close closes database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Load returns stored position of reader in book fitted to n documents. When
// nothing is stored zero position is returned and found is false.
func (s *Store) Load(reader, bookID string, n int) (pos book.Position, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return book.Position{}, false, fmt.Errorf("positions database is closed")
	}

	err = sqlitex.Execute(s.conn, `SELECT current_index FROM positions WHERE reader = ? AND book = ?`,
		&sqlitex.ExecOptions{
			Args: []any{reader, bookID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				pos.CurrentIndex, found = stmt.ColumnInt(0), true
				return nil
			},
		})
	if err != nil {
		return book.Position{}, false, fmt.Errorf("unable to load position: %w", err)
	}
	if !found {
		return book.NewPosition(n), false, nil
	}

	offsets := make(map[int]float64)
	last := -1
	err = sqlitex.Execute(s.conn, `SELECT document, scroll_offset FROM offsets WHERE reader = ? AND book = ? ORDER BY document`,
		&sqlitex.ExecOptions{
			Args: []any{reader, bookID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				doc := stmt.ColumnInt(0)
				offsets[doc] = stmt.ColumnFloat(1)
				last = max(last, doc)
				return nil
			},
		})
	if err != nil {
		return book.Position{}, false, fmt.Errorf("unable to load scroll offsets: %w", err)
	}

	pos.ScrollOffsets = make([]float64, last+1)
	for doc, o := range offsets {
		pos.ScrollOffsets[doc] = o
	}
	return pos.Normalize(n), true, nil
}

// Save replaces stored position of reader in book.
func (s *Store) Save(reader, bookID string, pos book.Position) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("positions database is closed")
	}

	defer sqlitex.Save(s.conn)(&err)

	if err = sqlitex.Execute(s.conn, `INSERT INTO positions (reader, book, current_index, updated) VALUES (?, ?, ?, ?)
		ON CONFLICT (reader, book) DO UPDATE SET current_index = excluded.current_index, updated = excluded.updated`,
		&sqlitex.ExecOptions{Args: []any{reader, bookID, pos.CurrentIndex, time.Now().Unix()}}); err != nil {
		return fmt.Errorf("unable to save position: %w", err)
	}
	if err = sqlitex.Execute(s.conn, `DELETE FROM offsets WHERE reader = ? AND book = ?`,
		&sqlitex.ExecOptions{Args: []any{reader, bookID}}); err != nil {
		return fmt.Errorf("unable to save scroll offsets: %w", err)
	}
	for doc, o := range pos.ScrollOffsets {
		if err = sqlitex.Execute(s.conn, `INSERT INTO offsets (reader, book, document, scroll_offset) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{reader, bookID, doc, o}}); err != nil {
			return fmt.Errorf("unable to save scroll offsets: %w", err)
		}
	}

	s.log.Debug("Position saved", zap.String("reader", reader), zap.String("book", bookID), zap.Int("index", pos.CurrentIndex))
	return nil
}
