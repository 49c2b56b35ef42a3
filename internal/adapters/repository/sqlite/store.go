package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// MemoryPath はプロセス内メモリ上にデータベースを作成するパスです。
const MemoryPath = ":memory:"

const (
	kindEmployee      = "employee"
	kindProject       = "project"
	kindAssignment    = "assignment"
	kindSkill         = "skill"
	kindEmployeeSkill = "employee_skill"

	orderByID  = "id"
	orderBySeq = "seq"
)

var (
	errRecordNotFound = errors.New("sqlite: record not found")
	errRecordExists   = errors.New("sqlite: record already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    kind    TEXT    NOT NULL,
    id      TEXT    NOT NULL,
    seq     INTEGER NOT NULL,
    payload TEXT    NOT NULL,
    PRIMARY KEY (kind, id)
)`

// Store は社員、プロジェクト、アサインメント、スキルを JSON ペイロードとして 1 テーブルに保存するレコードストアです。
// 単一プロセスからの利用を前提とし、接続数は 1 に固定します。
type Store struct {
	db   *sql.DB
	path string
}

// Open は SQLite データベースを開き、スキーマを作成します。
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("sqlite: create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// :memory: は接続ごとに別データベースになる
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create records table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close はデータベースを閉じます。
func (s *Store) Close() error {
	return s.db.Close()
}

// Path は設定されたデータベースパスを返します。
func (s *Store) Path() string { return s.path }

// Employees は社員リポジトリを返します。
func (s *Store) Employees() *EmployeeRepository { return &EmployeeRepository{store: s} }

// Projects はプロジェクトリポジトリを返します。
func (s *Store) Projects() *ProjectRepository { return &ProjectRepository{store: s} }

// Assignments はアサインメントリポジトリを返します。
func (s *Store) Assignments() *AssignmentRepository { return &AssignmentRepository{store: s} }

// Skills はスキルカタログのリポジトリを返します。
func (s *Store) Skills() *SkillRepository { return &SkillRepository{store: s} }

// EmployeeSkills は社員スキルのリポジトリを返します。
func (s *Store) EmployeeSkills() *EmployeeSkillRepository { return &EmployeeSkillRepository{store: s} }

// match は JSON ペイロードのフィールド一致条件です。
type match struct {
	field string
	value any
}

func (s *Store) insert(ctx context.Context, kind, id string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s %s: %w", kind, id, err)
	}

	res, err := s.db.ExecContext(ctx, `
        INSERT INTO records (kind, id, seq, payload)
        VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE kind = ?), ?)
        ON CONFLICT (kind, id) DO NOTHING`,
		kind, id, kind, string(payload))
	if err != nil {
		return fmt.Errorf("sqlite: insert %s %s: %w", kind, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: insert %s %s: %w", kind, id, err)
	}
	if affected == 0 {
		return errRecordExists
	}
	return nil
}

func (s *Store) replace(ctx context.Context, kind, id string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s %s: %w", kind, id, err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE records SET payload = ? WHERE kind = ? AND id = ?`, string(payload), kind, id)
	if err != nil {
		return fmt.Errorf("sqlite: update %s %s: %w", kind, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update %s %s: %w", kind, id, err)
	}
	if affected == 0 {
		return errRecordNotFound
	}
	return nil
}

func (s *Store) remove(ctx context.Context, kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete %s %s: %w", kind, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete %s %s: %w", kind, id, err)
	}
	if affected == 0 {
		return errRecordNotFound
	}
	return nil
}

func (s *Store) get(ctx context.Context, kind, id string, dst any) error {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM records WHERE kind = ? AND id = ?`, kind, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return errRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: select %s %s: %w", kind, id, err)
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return fmt.Errorf("sqlite: decode %s %s: %w", kind, id, err)
	}
	return nil
}

// selectPayloads は条件に一致するペイロードを返します。limit が 0 以下の場合は全件返します。
func (s *Store) selectPayloads(ctx context.Context, kind string, matches []match, orderBy string, limit, offset int) ([][]byte, error) {
	var b strings.Builder
	b.WriteString(`SELECT payload FROM records WHERE kind = ?`)
	args := []any{kind}
	for _, m := range matches {
		fmt.Fprintf(&b, ` AND json_extract(payload, '$.%s') = ?`, m.field)
		args = append(args, m.value)
	}
	b.WriteString(` ORDER BY ` + orderBy)
	if limit > 0 {
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	var payloads [][]byte
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", kind, err)
		}
		payloads = append(payloads, []byte(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: select %s: %w", kind, err)
	}
	return payloads, nil
}

func decodeAll[R any, E any](payloads [][]byte, toEntity func(*R) *E) ([]*E, error) {
	out := make([]*E, 0, len(payloads))
	for _, payload := range payloads {
		var record R
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("sqlite: decode: %w", err)
		}
		out = append(out, toEntity(&record))
	}
	return out, nil
}

// paginate は limit+1 件の取得結果から次ページトークンを求めます。
func paginate[E any](items []*E, limit, offset int) ([]*E, string) {
	if len(items) <= limit {
		return items, ""
	}
	return items[:limit], strconv.Itoa(offset + limit)
}

// jsonBool は json_extract が真偽値を 0/1 で返すことに合わせた比較値です。
func jsonBool(v bool) int {
	if v {
		return 1
	}
	return 0
}
