package repository

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestMigrations_EveryUpHasDown(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("iofs.New() unexpected error: %v", err)
	}
	defer src.Close()

	version, err := src.First()
	if err != nil {
		t.Fatalf("First() unexpected error: %v", err)
	}

	count := 0
	for {
		count++
		up, _, err := src.ReadUp(version)
		if err != nil {
			t.Fatalf("ReadUp(%d) unexpected error: %v", version, err)
		}
		body, _ := io.ReadAll(up)
		up.Close()
		if strings.Count(strings.TrimSpace(string(body)), ";") != 1 {
			t.Errorf("migration %d up should hold exactly one statement", version)
		}

		down, _, err := src.ReadDown(version)
		if err != nil {
			t.Errorf("migration %d has no down file: %v", version, err)
		} else {
			down.Close()
		}

		version, err = src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			t.Fatalf("Next() unexpected error: %v", err)
		}
	}

	if count != 3 {
		t.Errorf("migrations = %d, want 3", count)
	}
}
