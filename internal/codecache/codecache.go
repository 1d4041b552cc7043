// Package codecache keeps the compiled units of each compilation run in a
// SQLite database. Every run is identified by a UUID; every unit is kept
// both as its text listing and as a protobuf-encoded instruction list.
package codecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	_ "modernc.org/sqlite"

	"github.com/funvibe/kernel/internal/bytecode"
)

// ErrNotFound is returned by Get for an unknown run or unit.
var ErrNotFound = errors.New("codecache: no such unit")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id      TEXT PRIMARY KEY,
	source  TEXT NOT NULL,
	started INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS units (
	run     TEXT NOT NULL REFERENCES runs(id),
	name    TEXT NOT NULL,
	listing TEXT NOT NULL,
	code    BLOB NOT NULL,
	PRIMARY KEY (run, name)
);`

// Store is a code cache backed by one database file.
type Store struct {
	db *sql.DB
}

// Run describes one compilation run.
type Run struct {
	ID      uuid.UUID
	Source  string
	Started time.Time
}

// Op is a cached instruction. Operands that need the compiled tree, such
// as scopes and entries, survive in the listing only.
type Op struct {
	Op   string
	Int  int64
	Real float64
	Str  string
	Line int
}

// Unit is a cached compiled unit.
type Unit struct {
	Run     uuid.UUID
	Name    string
	Listing string
	Ops     []Op
}

// Open opens or creates the cache at path. ":memory:" gives a private
// in-memory cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// An in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records a new run over source and returns its id.
func (s *Store) Begin(ctx context.Context, source string) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, started) VALUES (?, ?, ?)`,
		id.String(), source, time.Now().UnixNano())
	if err != nil {
		return uuid.Nil, fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Put stores the code of a unit under run, replacing a previous version.
func (s *Store) Put(ctx context.Context, run uuid.UUID, name string, code bytecode.Code) error {
	blob, err := Encode(code)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO units (run, name, listing, code) VALUES (?, ?, ?, ?)`,
		run.String(), name, bytecode.Disassemble(code, name), blob)
	if err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}
	return nil
}

// Get loads a unit stored by Put.
func (s *Store) Get(ctx context.Context, run uuid.UUID, name string) (*Unit, error) {
	var listing string
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT listing, code FROM units WHERE run = ? AND name = ?`,
		run.String(), name).Scan(&listing, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s in run %s", ErrNotFound, name, run)
	}
	if err != nil {
		return nil, err
	}
	ops, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return &Unit{Run: run, Name: name, Listing: listing, Ops: ops}, nil
}

// Units lists the names of the units stored under run, in name order.
func (s *Store) Units(ctx context.Context, run uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM units WHERE run = ? ORDER BY name`, run.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Runs lists the recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, started FROM runs ORDER BY started, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var id, source string
		var started int64
		if err := rows.Scan(&id, &source, &started); err != nil {
			return nil, err
		}
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		runs = append(runs, Run{ID: u, Source: source, Started: time.Unix(0, started)})
	}
	return runs, rows.Err()
}

// Encode serializes the instructions of code as a protobuf ListValue of
// Structs, one per instruction.
func Encode(code bytecode.Code) ([]byte, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, len(code))}
	for i, in := range code {
		fields := map[string]*structpb.Value{
			"op": structpb.NewStringValue(in.Op.String()),
		}
		if in.Int != 0 {
			// Ints travel as strings: a protobuf number is a double.
			fields["int"] = structpb.NewStringValue(strconv.FormatInt(in.Int, 10))
		}
		if in.Real != 0 {
			fields["real"] = structpb.NewNumberValue(in.Real)
		}
		if in.Str != "" {
			fields["str"] = structpb.NewStringValue(in.Str)
		}
		if in.Line != 0 {
			fields["line"] = structpb.NewNumberValue(float64(in.Line))
		}
		list.Values[i] = structpb.NewStructValue(&structpb.Struct{Fields: fields})
	}
	return proto.Marshal(list)
}

// Decode reverses Encode.
func Decode(blob []byte) ([]Op, error) {
	var list structpb.ListValue
	if err := proto.Unmarshal(blob, &list); err != nil {
		return nil, err
	}
	ops := make([]Op, len(list.Values))
	for i, v := range list.Values {
		st := v.GetStructValue()
		if st == nil {
			return nil, fmt.Errorf("instruction %d is not a struct", i)
		}
		f := st.GetFields()
		ops[i].Op = f["op"].GetStringValue()
		if s := f["int"].GetStringValue(); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			ops[i].Int = n
		}
		ops[i].Real = f["real"].GetNumberValue()
		ops[i].Str = f["str"].GetStringValue()
		ops[i].Line = int(f["line"].GetNumberValue())
	}
	return ops, nil
}
