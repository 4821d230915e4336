package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/drive"
	"github.com/asdine/storm/v3"
)

const ACTIVE_PROFILE = "active"

// ConstantsProfile is a named set of tuning constants. The profile named
// ACTIVE_PROFILE is loaded at start up.
type ConstantsProfile struct {
	ID        int    `storm:"increment"` // pk
	Name      string `storm:"unique"`
	Constants drive.Constants
	Saved     time.Time
}

func openDb(dbFile string) (db *storm.DB, err error) {
	dir := filepath.Dir(dbFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		os.MkdirAll(dir, 0755)
	}

	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	for _, data := range []interface{}{&Operator{}, &ConstantsProfile{}} {
		if err = db.Init(data); err != nil {
			db.Close()
			return nil, err
		}
	}

	return
}

// SaveProfile creates or replaces the named profile.
func SaveProfile(db *storm.DB, name string, c drive.Constants) error {
	if err := c.Validate(); err != nil {
		return err
	}

	profile := &ConstantsProfile{
		Name:      name,
		Constants: c,
		Saved:     time.Now().UTC(),
	}

	var existing ConstantsProfile
	if err := db.One("Name", name, &existing); err == nil {
		profile.ID = existing.ID
	} else if err != storm.ErrNotFound {
		return err
	}

	return db.Save(profile)
}

func LoadProfile(db *storm.DB, name string) (c drive.Constants, err error) {
	var profile ConstantsProfile
	if err = db.One("Name", name, &profile); err != nil {
		return
	}
	return profile.Constants, nil
}

// ProfileNames lists the saved profiles.
func ProfileNames(db *storm.DB) (names []string, err error) {
	var profiles []ConstantsProfile
	if err = db.All(&profiles); err != nil {
		return
	}
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return
}

// profileConstants provides the active profile, falling back to the
// constants from the robot configuration.
type profileConstants struct {
	db       *storm.DB
	fallback drive.Constants
}

func (p profileConstants) Constants() drive.Constants {
	c, err := LoadProfile(p.db, ACTIVE_PROFILE)
	if err != nil {
		return p.fallback
	}
	return c
}
