// Package sqljob is a small relational helper: map-based INSERT and
// UPDATE builders plus query, exec and transaction passthroughs over
// one database handle.
//
// Column names are validated and sorted, values are always bound as
// named parameters.  While a transaction is open every call runs
// inside it.
package sqljob

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	lkerr "relink/internal/errors"
	"relink/util"
)

var (
	// ErrNoColumns is returned by Insert and Update for an empty data map.
	ErrNoColumns = errors.New("sqljob: no columns given")
	// ErrNoWhere is returned by Update for a blank where clause.
	ErrNoWhere = errors.New("sqljob: update requires a where clause")
	// ErrTxActive is returned by Begin while a transaction is open.
	ErrTxActive = errors.New("sqljob: transaction already open")
	// ErrNoTx is returned by Commit and Rollback with no open transaction.
	ErrNoTx = errors.New("sqljob: no open transaction")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// runner is what both *sqlx.DB and *sqlx.Tx offer.
type runner interface {
	sqlx.Ext
	NamedExec(query string, arg interface{}) (sql.Result, error)
}

// Job wraps a database handle and at most one open transaction.  It is
// safe for concurrent use.
type Job struct {
	db     *sqlx.DB
	logger *util.Logger

	mu sync.Mutex
	tx *sqlx.Tx
}

// Open connects to dsn with the named driver and pings it.  SQLite
// handles are limited to one connection so ":memory:" databases are
// shared by every call.
func Open(driver, dsn string) (*Job, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqljob: open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqljob: enable foreign keys: %w", err)
		}
	}
	return &Job{db: db}, nil
}

// SetLogger routes the rendered SQL of every Insert and Update to l
// at debug level.
func (j *Job) SetLogger(l *util.Logger) { j.logger = l }

// Close rolls back an open transaction and closes the handle.
func (j *Job) Close() error {
	j.mu.Lock()
	tx := j.tx
	j.tx = nil
	j.mu.Unlock()
	if tx != nil {
		tx.Rollback() //nolint:errcheck
	}
	return j.db.Close()
}

func (j *Job) run() runner {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.tx != nil {
		return j.tx
	}
	return j.db
}

// ── Passthroughs ─────────────────────────────────────────────────────

// Query runs query and returns every row as a column → value map.
// TEXT and BLOB values come back as string.
func (j *Job) Query(query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := j.run().Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqljob: query: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("sqljob: scan: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Exec runs a statement and reports whether it affected any row.
func (j *Job) Exec(query string, args ...interface{}) (bool, error) {
	res, err := j.run().Exec(query, args...)
	if err != nil {
		return false, fmt.Errorf("sqljob: exec: %w", err)
	}
	return affected(res)
}

// ── Builders ─────────────────────────────────────────────────────────

// Insert adds one row built from data and reports whether it landed.
func (j *Job) Insert(table string, data map[string]interface{}) (bool, error) {
	cols, err := columns(table, data)
	if err != nil {
		return false, fmt.Errorf("[Insert] %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		table, strings.Join(cols, ", "), strings.Join(cols, ", :"))
	j.logger.Debug("%s", DebugSQL(query, data))

	res, err := j.run().NamedExec(query, data)
	if err != nil {
		return false, fmt.Errorf("[Insert] %w", err)
	}
	return affected(res)
}

// Update sets the columns in data on every row matching where, which
// uses positional "?" placeholders bound to whereArgs.  It reports
// whether any row changed.
func (j *Job) Update(table string, data map[string]interface{}, where string, whereArgs ...interface{}) (bool, error) {
	cols, err := columns(table, data)
	if err != nil {
		return false, fmt.Errorf("[Update] %w", err)
	}
	if strings.TrimSpace(where) == "" {
		return false, fmt.Errorf("[Update] %w", ErrNoWhere)
	}

	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = :" + c
	}
	named := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(set, ", "))
	j.logger.Debug("%s WHERE %s", DebugSQL(named, data), where)

	query, args, err := sqlx.Named(named, data)
	if err != nil {
		return false, fmt.Errorf("[Update] %w", err)
	}
	query = j.db.Rebind(query + " WHERE " + where)
	args = append(args, whereArgs...)

	res, err := j.run().Exec(query, args...)
	if err != nil {
		return false, fmt.Errorf("[Update] %w", err)
	}
	return affected(res)
}

// ── Transactions ─────────────────────────────────────────────────────

// Begin opens a transaction.  Only one may be open at a time.
func (j *Job) Begin() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.tx != nil {
		return ErrTxActive
	}
	tx, err := j.db.Beginx()
	if err != nil {
		return fmt.Errorf("sqljob: begin: %w", err)
	}
	j.tx = tx
	return nil
}

// Commit commits the open transaction.
func (j *Job) Commit() error {
	tx, err := j.takeTx()
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Rollback abandons the open transaction.
func (j *Job) Rollback() error {
	tx, err := j.takeTx()
	if err != nil {
		return err
	}
	return tx.Rollback()
}

func (j *Job) takeTx() (*sqlx.Tx, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.tx == nil {
		return nil, ErrNoTx
	}
	tx := j.tx
	j.tx = nil
	return tx, nil
}

// ── helpers ──────────────────────────────────────────────────────────

// columns validates table and the keys of data and returns the keys
// sorted.
func columns(table string, data map[string]interface{}) ([]string, error) {
	if !identRe.MatchString(table) {
		return nil, &lkerr.ConfigError{Field: "table", Value: table, Message: "invalid identifier"}
	}
	if len(data) == 0 {
		return nil, ErrNoColumns
	}
	cols := make([]string, 0, len(data))
	for k := range data {
		if !identRe.MatchString(k) {
			return nil, &lkerr.ConfigError{Field: "column", Value: k, Message: "invalid identifier"}
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqljob: rows affected: %w", err)
	}
	return n > 0, nil
}
