package postgresengine

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine/internal/adapters"
)

// fakeResponse is what the fake database answers for a matching statement.
type fakeResponse struct {
	rows         [][]any
	rowsAffected int64
	err          error
}

type fakeRule struct {
	contains string
	response fakeResponse
	once     bool
	used     bool
}

// fakeDB is a scripted adapters.DBAdapter. Statements are matched against rules by substring in
// the order the rules were added. Unmatched queries return no rows, unmatched statements affect one row.
type fakeDB struct {
	mu         sync.Mutex
	rules      []*fakeRule
	statements []string
	begun      int
	committed  int
	rolledBack int
	beginErr   error
	commitErr  error
}

func newFakeDB() *fakeDB {
	return &fakeDB{}
}

// on answers every statement containing the substring.
func (f *fakeDB) on(contains string, response fakeResponse) *fakeDB {
	f.rules = append(f.rules, &fakeRule{contains: contains, response: response})
	return f
}

// onceOn answers only the first not yet answered statement containing the substring.
func (f *fakeDB) onceOn(contains string, response fakeResponse) *fakeDB {
	f.rules = append(f.rules, &fakeRule{contains: contains, response: response, once: true})
	return f
}

func (f *fakeDB) respond(query string) fakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, query)

	for _, rule := range f.rules {
		if rule.used || !strings.Contains(query, rule.contains) {
			continue
		}

		if rule.once {
			rule.used = true
		}

		return rule.response
	}

	return fakeResponse{rowsAffected: 1}
}

func (f *fakeDB) BeginTx(_ context.Context) (adapters.DBTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beginErr != nil {
		return nil, f.beginErr
	}

	f.begun++

	return &fakeTx{db: f}, nil
}

func (f *fakeDB) Query(_ context.Context, query string) (adapters.DBRows, error) {
	response := f.respond(query)
	if response.err != nil {
		return nil, response.err
	}

	return &fakeRows{rows: response.rows, idx: -1}, nil
}

// statementsContaining returns all recorded statements containing the substring.
func (f *fakeDB) statementsContaining(contains string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	matching := make([]string, 0)
	for _, statement := range f.statements {
		if strings.Contains(statement, contains) {
			matching = append(matching, statement)
		}
	}

	return matching
}

// indexOf returns the position of the first recorded statement containing the substring, or -1.
func (f *fakeDB) indexOf(contains string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, statement := range f.statements {
		if strings.Contains(statement, contains) {
			return i
		}
	}

	return -1
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Query(ctx context.Context, query string) (adapters.DBRows, error) {
	return t.db.Query(ctx, query)
}

func (t *fakeTx) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	response := t.db.respond(query)
	if response.err != nil {
		return nil, response.err
	}

	return fakeResult{rowsAffected: response.rowsAffected}, nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	if t.db.commitErr != nil {
		return t.db.commitErr
	}

	t.db.committed++

	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	t.db.rolledBack++

	return nil
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(row) != len(dest) {
		return fmt.Errorf("fake row has %d columns, scan wants %d", len(row), len(dest))
	}

	for i, value := range row {
		target := reflect.ValueOf(dest[i]).Elem()
		source := reflect.ValueOf(value)

		if !source.Type().ConvertibleTo(target.Type()) {
			return fmt.Errorf("column %d: cannot scan %T into %s", i, value, target.Type())
		}

		target.Set(source.Convert(target.Type()))
	}

	return nil
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() error {
	return nil
}

type fakeResult struct {
	rowsAffected int64
}

func (r fakeResult) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
