// Package staff loads the read-only staff directory used for assignment.
package staff

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"call-desk/internal/calls"

	toml "github.com/pelletier/go-toml/v2"
)

// Profile is one staff member as listed in the directory file.
type Profile struct {
	ID       string `json:"id" toml:"id"`
	FullName string `json:"full_name" toml:"full_name"`
	Email    string `json:"email,omitempty" toml:"email"`
}

// Directory is an immutable id -> profile lookup.
type Directory struct {
	profiles []Profile
	byID     map[string]Profile
}

// NewDirectory validates profiles: ids must be non-empty and unique.
func NewDirectory(profiles []Profile) (*Directory, error) {
	d := &Directory{byID: make(map[string]Profile, len(profiles))}
	for i, p := range profiles {
		p.ID = strings.TrimSpace(p.ID)
		p.FullName = strings.TrimSpace(p.FullName)
		p.Email = strings.TrimSpace(p.Email)
		if p.ID == "" {
			return nil, fmt.Errorf("staff entry %d: id is required", i)
		}
		if _, dup := d.byID[p.ID]; dup {
			return nil, fmt.Errorf("staff entry %d: duplicate id %q", i, p.ID)
		}
		if p.FullName == "" {
			p.FullName = p.ID
		}
		d.byID[p.ID] = p
		d.profiles = append(d.profiles, p)
	}
	sort.SliceStable(d.profiles, func(i, j int) bool {
		return d.profiles[i].FullName < d.profiles[j].FullName
	})
	return d, nil
}

// Load reads a TOML file of [[staff]] tables. An empty path or a missing file
// yields an empty directory.
func Load(path string) (*Directory, error) {
	if strings.TrimSpace(path) == "" {
		return NewDirectory(nil)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDirectory(nil)
		}
		return nil, fmt.Errorf("open staff file: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read staff file: %w", err)
	}
	return Parse(bytes)
}

// Parse decodes directory TOML.
func Parse(data []byte) (*Directory, error) {
	var raw struct {
		Staff []Profile `toml:"staff"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse staff file: %w", err)
	}
	return NewDirectory(raw.Staff)
}

// All returns the profiles sorted by display name.
func (d *Directory) All() []Profile {
	out := make([]Profile, len(d.profiles))
	copy(out, d.profiles)
	return out
}

// Profile implements calls.StaffLookup.
func (d *Directory) Profile(id string) (calls.StaffRef, bool) {
	p, ok := d.byID[id]
	if !ok {
		return calls.StaffRef{}, false
	}
	return calls.StaffRef{ID: p.ID, FullName: p.FullName, Email: p.Email}, true
}
