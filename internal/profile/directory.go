// Package profile implements the employee directory: a local sqlite
// database seeded from a YAML roster, looked up once per login.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"axisconnect/internal/domain"
	"axisconnect/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS employees (
	code           TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	designation    TEXT NOT NULL DEFAULT '',
	department     TEXT NOT NULL DEFAULT '',
	sub_department TEXT NOT NULL DEFAULT '',
	manager        TEXT NOT NULL DEFAULT '',
	hrbp           TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	shift          TEXT NOT NULL DEFAULT '',
	join_date      TEXT NOT NULL DEFAULT '',
	clearance      TEXT NOT NULL DEFAULT 'standard',
	leave_balance  INTEGER NOT NULL DEFAULT 0,
	leave_taken    INTEGER NOT NULL DEFAULT 0,
	compensation   TEXT NOT NULL DEFAULT '[]',
	goals          TEXT NOT NULL DEFAULT '[]',
	assets         TEXT NOT NULL DEFAULT '[]',
	open_tickets   TEXT NOT NULL DEFAULT '[]'
);
`

// Directory is a read-mostly employee store backed by sqlite.
type Directory struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.ProfileProvider = (*Directory)(nil)

// Open opens (creating if needed) the directory database at path.
func Open(path string) (*Directory, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening employee directory: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing employee directory: %w", err)
	}
	return &Directory{db: db, logger: logging.NewModuleLogger("profile")}, nil
}

// Close closes the underlying database.
func (d *Directory) Close() error {
	return d.db.Close()
}

// Count returns how many employees the directory holds.
func (d *Directory) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&n)
	return n, err
}

// Lookup returns the profile for an employee code, case-insensitively.
// Returns domain.ErrNotFound when the code matches no employee.
func (d *Directory) Lookup(ctx context.Context, code string) (domain.Profile, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	row := d.db.QueryRowContext(ctx, `
		SELECT code, name, designation, department, sub_department, manager,
		       hrbp, location, shift, join_date, clearance,
		       leave_balance, leave_taken, compensation, goals, assets, open_tickets
		FROM employees WHERE code = ?`, code)

	var p domain.Profile
	var clearance, compensation, goals, assets, tickets string
	err := row.Scan(
		&p.EmployeeCode, &p.Name, &p.Designation, &p.Department, &p.SubDepartment,
		&p.Manager, &p.HRBP, &p.Location, &p.Shift, &p.JoinDate, &clearance,
		&p.LeaveBalance, &p.LeaveTaken, &compensation, &goals, &assets, &tickets,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("looking up employee %s: %w", code, err)
	}
	p.Clearance = domain.ParseClearance(clearance)
	if err := decodeJSON(compensation, &p.Compensation); err != nil {
		return domain.Profile{}, fmt.Errorf("decoding compensation for %s: %w", code, err)
	}
	if err := decodeJSON(goals, &p.Goals); err != nil {
		return domain.Profile{}, fmt.Errorf("decoding goals for %s: %w", code, err)
	}
	if err := decodeJSON(assets, &p.Assets); err != nil {
		return domain.Profile{}, fmt.Errorf("decoding assets for %s: %w", code, err)
	}
	if err := decodeJSON(tickets, &p.OpenTickets); err != nil {
		return domain.Profile{}, fmt.Errorf("decoding tickets for %s: %w", code, err)
	}
	return p, nil
}

// Upsert inserts or replaces one employee record.
func (d *Directory) Upsert(ctx context.Context, p domain.Profile) error {
	compensation, err := encodeJSON(p.Compensation)
	if err != nil {
		return err
	}
	goals, err := encodeJSON(p.Goals)
	if err != nil {
		return err
	}
	assets, err := encodeJSON(p.Assets)
	if err != nil {
		return err
	}
	tickets, err := encodeJSON(p.OpenTickets)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO employees
		(code, name, designation, department, sub_department, manager, hrbp,
		 location, shift, join_date, clearance, leave_balance, leave_taken,
		 compensation, goals, assets, open_tickets)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToUpper(strings.TrimSpace(p.EmployeeCode)), p.Name, p.Designation,
		p.Department, p.SubDepartment, p.Manager, p.HRBP, p.Location, p.Shift,
		p.JoinDate, p.Clearance.String(), p.LeaveBalance, p.LeaveTaken,
		compensation, goals, assets, tickets,
	)
	if err != nil {
		return fmt.Errorf("storing employee %s: %w", p.EmployeeCode, err)
	}
	return nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
