package candidates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ncboard/internal/record"
)

// ErrNotFound reports an id with no stored candidate.
var ErrNotFound = errors.New("candidate not found")

const candidateColumns = "id, name, gender, qualification, date_assessed, assessment_center, assessment_status, result, nc_no, school, source_file"

// fieldColumns maps canonical record field names to columns.
var fieldColumns = map[string]string{
	"name":             "name",
	"gender":           "gender",
	"qualification":    "qualification",
	"dateAssessed":     "date_assessed",
	"assessmentCenter": "assessment_center",
	"assessmentStatus": "assessment_status",
	"result":           "result",
	"ncNo":             "nc_no",
	"school":           "school",
	"sourceFile":       "source_file",
}

// ParseID converts a wire id to the numeric primary key.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrNotFound, raw)
	}
	return id, nil
}

func scanCandidate(scanner interface{ Scan(dest ...any) error }) (record.Record, error) {
	var (
		id  int64
		rec record.Record
	)
	if err := scanner.Scan(
		&id,
		&rec.Name,
		&rec.Gender,
		&rec.Qualification,
		&rec.DateAssessed,
		&rec.AssessmentCenter,
		&rec.AssessmentStatus,
		&rec.Result,
		&rec.NCNo,
		&rec.School,
		&rec.SourceFile,
	); err != nil {
		return record.Record{}, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	return rec, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// List returns every candidate ordered by id.
func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	out := []record.Record{}
	for rows.Next() {
		rec, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// Get returns one candidate.
func (s *Store) Get(ctx context.Context, id int64) (record.Record, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`), id)
	rec, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("get candidate: %w", err)
	}
	return rec, nil
}

// Create inserts rec and returns its id.
func (s *Store) Create(ctx context.Context, rec record.Record) (int64, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.insert(ctx, s.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) insert(ctx context.Context, db execer, rec record.Record) (int64, error) {
	ts := s.timestamp()
	query := `INSERT INTO candidates (
            name, gender, qualification, date_assessed, assessment_center,
            assessment_status, result, nc_no, school, source_file, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		strings.TrimSpace(rec.Name),
		strings.TrimSpace(rec.Gender),
		strings.TrimSpace(rec.Qualification),
		record.NormalizeDate(strings.TrimSpace(rec.DateAssessed)),
		strings.TrimSpace(rec.AssessmentCenter),
		strings.TrimSpace(rec.AssessmentStatus),
		strings.TrimSpace(rec.Result),
		strings.TrimSpace(rec.NCNo),
		strings.TrimSpace(rec.School),
		strings.TrimSpace(rec.SourceFile),
		ts,
		ts,
	}

	if s.dialect == Postgres {
		var id int64
		if err := db.QueryRowContext(ctx, s.rebind(query+` RETURNING id`), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert candidate: %w", err)
		}
		return id, nil
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert candidate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Update sets the given fields, keyed by canonical record field name, on
// candidate id. Unknown field names are rejected. It returns the number of
// affected rows.
func (s *Store) Update(ctx context.Context, id int64, fields map[string]string) (int, error) {
	if len(fields) == 0 {
		return 0, errors.New("no fields to update")
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := fieldColumns[name]; !ok {
			return 0, fmt.Errorf("unknown field %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	for _, name := range names {
		value := strings.TrimSpace(fields[name])
		if name == "dateAssessed" {
			value = record.NormalizeDate(value)
		}
		sets = append(sets, fieldColumns[name]+" = ?")
		args = append(args, value)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.timestamp(), id)

	ctx, cancel := s.callContext(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE candidates SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return 0, fmt.Errorf("update candidate: %w", err)
	}
	return affected(res)
}

// Delete removes candidate id and returns the number of affected rows.
func (s *Store) Delete(ctx context.Context, id int64) (int, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM candidates WHERE id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("delete candidate: %w", err)
	}
	return affected(res)
}

// DeleteBySource removes every candidate imported from sourceFile and
// returns the deleted count together with the remaining distinct source
// files.
func (s *Store) DeleteBySource(ctx context.Context, sourceFile string) (int, []string, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM candidates WHERE source_file = ?`), strings.TrimSpace(sourceFile))
	if err != nil {
		return 0, nil, fmt.Errorf("delete by source: %w", err)
	}
	deleted, err := affected(res)
	if err != nil {
		return 0, nil, err
	}
	remaining, err := s.sourceFiles(ctx)
	if err != nil {
		return deleted, nil, err
	}
	return deleted, remaining, nil
}

// SourceFiles lists the distinct non-empty provenance values.
func (s *Store) SourceFiles(ctx context.Context) ([]string, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.sourceFiles(ctx)
}

func (s *Store) sourceFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source_file FROM candidates WHERE source_file <> '' ORDER BY source_file`)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan source file: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Import inserts rows in one transaction, tagging each with sourceFile when
// set. It returns the inserted count.
func (s *Store) Import(ctx context.Context, rows []record.Record, sourceFile string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(1+len(rows)/500))
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	sourceFile = strings.TrimSpace(sourceFile)
	for _, rec := range rows {
		if sourceFile != "" {
			rec.SourceFile = sourceFile
		}
		if _, err := s.insert(ctx, tx, rec); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(rows), nil
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
