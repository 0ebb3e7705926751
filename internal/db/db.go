package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"filedrop/internal/models"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	// sqliteFoldDriver is go-sqlite3 with ulower registered on every
	// connection. SQLite's own LOWER only folds ASCII.
	sqliteFoldDriver = "sqlite3_fold"
)

func init() {
	sql.Register(sqliteFoldDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

type DB struct {
	*sql.DB
	driver string
}

func Init(driver, dsn string) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	sqlDriver := driver
	if driver == DriverSQLite {
		sqlDriver = sqliteFoldDriver
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, err
	}

	// sqlite serialises writers anyway; one connection avoids "database is locked".
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db, driver); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, driver: driver}, nil
}

func createTables(db *sql.DB, driver string) error {
	queries := sqliteSchema
	if driver == DriverPostgres {
		queries = postgresSchema
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user'
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		display_name TEXT NOT NULL,
		category TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		storage_locator TEXT UNIQUE NOT NULL,
		uploaded_by TEXT NOT NULL,
		uploaded_at TIMESTAMP NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user'
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		id SERIAL PRIMARY KEY,
		display_name TEXT NOT NULL,
		category TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		storage_locator TEXT UNIQUE NOT NULL,
		uploaded_by TEXT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL
	)`,
}

// rebind rewrites ? placeholders into the $n form lib/pq expects.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := db.rebind("SELECT id, username, password_hash, role FROM users WHERE username = ?")

	row := db.QueryRowContext(ctx, query, username)
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (db *DB) CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error) {
	query := db.rebind("INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?) RETURNING id")

	user := &models.User{Username: username, PasswordHash: passwordHash, Role: role}
	if err := db.QueryRowContext(ctx, query, username, passwordHash, string(role)).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateUsername
		}
		return nil, err
	}
	return user, nil
}

func (db *DB) DeleteUser(ctx context.Context, id int) error {
	_, err := db.ExecContext(ctx, db.rebind("DELETE FROM users WHERE id = ?"), id)
	return err
}

func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	query := "SELECT id, username, password_hash, role FROM users ORDER BY id"

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

const fileColumns = "id, display_name, category, original_filename, storage_locator, uploaded_by, uploaded_at"

func (db *DB) CreateFile(ctx context.Context, f *models.File) error {
	query := db.rebind(`INSERT INTO files (display_name, category, original_filename, storage_locator, uploaded_by, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)

	return db.QueryRowContext(ctx, query,
		f.DisplayName, f.Category, f.OriginalFilename, f.Locator, f.UploadedBy, f.UploadedAt,
	).Scan(&f.ID)
}

func (db *DB) GetFile(ctx context.Context, id int) (*models.File, error) {
	row := db.QueryRowContext(ctx, db.rebind("SELECT "+fileColumns+" FROM files WHERE id = ?"), id)
	return scanFile(row)
}

func (db *DB) GetFileByLocator(ctx context.Context, locator string) (*models.File, error) {
	row := db.QueryRowContext(ctx, db.rebind("SELECT "+fileColumns+" FROM files WHERE storage_locator = ?"), locator)
	return scanFile(row)
}

// DeleteFile removes the row and returns it. Of two concurrent deletes of
// the same id only one gets the record; the other sees models.ErrNotFound.
func (db *DB) DeleteFile(ctx context.Context, id int) (*models.File, error) {
	row := db.QueryRowContext(ctx, db.rebind("DELETE FROM files WHERE id = ? RETURNING "+fileColumns), id)
	return scanFile(row)
}

func (db *DB) ListFiles(ctx context.Context) ([]models.File, error) {
	return db.queryFiles(ctx, "SELECT "+fileColumns+" FROM files ORDER BY id")
}

// SearchFiles folds the columns and the pattern with the same function so
// both sides compare alike: ulower on sqlite, LOWER on postgres.
func (db *DB) SearchFiles(ctx context.Context, query string) ([]models.File, error) {
	fold := "LOWER"
	if db.driver == DriverSQLite {
		fold = "ulower"
	}
	pattern := "%" + escapeLike(query) + "%"
	stmt := db.rebind(fmt.Sprintf(`SELECT `+fileColumns+` FROM files
		WHERE %[1]s(display_name) LIKE %[1]s(?) ESCAPE '\'
		   OR %[1]s(category) LIKE %[1]s(?) ESCAPE '\'
		   OR %[1]s(original_filename) LIKE %[1]s(?) ESCAPE '\'
		ORDER BY id`, fold))
	return db.queryFiles(ctx, stmt, pattern, pattern, pattern)
}

func (db *DB) queryFiles(ctx context.Context, query string, args ...interface{}) ([]models.File, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.DisplayName, &f.Category, &f.OriginalFilename, &f.Locator, &f.UploadedBy, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.DisplayName, &f.Category, &f.OriginalFilename, &f.Locator, &f.UploadedBy, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
