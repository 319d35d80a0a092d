package profile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"axisconnect/internal/domain"
)

type rosterField struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type rosterEntry struct {
	Code          string        `yaml:"code"`
	Name          string        `yaml:"name"`
	Designation   string        `yaml:"designation"`
	Department    string        `yaml:"department"`
	SubDepartment string        `yaml:"sub_department"`
	Manager       string        `yaml:"manager"`
	HRBP          string        `yaml:"hrbp"`
	Location      string        `yaml:"location"`
	Shift         string        `yaml:"shift"`
	JoinDate      string        `yaml:"join_date"`
	Clearance     string        `yaml:"clearance"`
	LeaveBalance  int           `yaml:"leave_balance"`
	LeaveTaken    int           `yaml:"leave_taken"`
	Compensation  []rosterField `yaml:"compensation"`
	Goals         []string      `yaml:"goals"`
	Assets        []string      `yaml:"assets"`
	OpenTickets   []string      `yaml:"open_tickets"`
}

type roster struct {
	Employees []rosterEntry `yaml:"employees"`
}

func (e rosterEntry) profile() domain.Profile {
	p := domain.Profile{
		EmployeeCode:  e.Code,
		Name:          e.Name,
		Designation:   e.Designation,
		Department:    e.Department,
		SubDepartment: e.SubDepartment,
		Manager:       e.Manager,
		HRBP:          e.HRBP,
		Location:      e.Location,
		Shift:         e.Shift,
		JoinDate:      e.JoinDate,
		Clearance:     domain.ParseClearance(e.Clearance),
		LeaveBalance:  e.LeaveBalance,
		LeaveTaken:    e.LeaveTaken,
		Goals:         e.Goals,
		Assets:        e.Assets,
		OpenTickets:   e.OpenTickets,
	}
	for _, f := range e.Compensation {
		p.Compensation = append(p.Compensation, domain.Field{Label: f.Label, Value: f.Value})
	}
	return p
}

// SeedIfEmpty loads a YAML roster into an empty directory. A populated
// directory is left untouched; a missing seed file is not an error.
func (d *Directory) SeedIfEmpty(ctx context.Context, seedPath string) error {
	n, err := d.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	data, err := os.ReadFile(seedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("no seed roster found, directory stays empty", "path", seedPath)
			return nil
		}
		return fmt.Errorf("reading seed roster: %w", err)
	}
	var r roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("parsing seed roster: %w", err)
	}
	for _, entry := range r.Employees {
		if entry.Code == "" {
			return fmt.Errorf("seed roster entry %q has no employee code", entry.Name)
		}
		if err := d.Upsert(ctx, entry.profile()); err != nil {
			return err
		}
	}
	d.logger.Info("seeded employee directory", "path", seedPath, "employees", len(r.Employees))
	return nil
}
