package main

import (
	"embed"
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fsys embed.FS
		dir  string
	}{
		{name: "schema", fsys: baseFS, dir: "migrations"},
		{name: "seed", fsys: devFS, dir: "test_data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := iofs.New(tt.fsys, tt.dir)
			if err != nil {
				t.Fatalf("iofs source: %v", err)
			}
			//nolint:errcheck
			defer src.Close()

			version, err := src.First()
			if err != nil {
				t.Fatalf("first version: %v", err)
			}

			for {
				up, _, err := src.ReadUp(version)
				if err != nil {
					t.Fatalf("version %d: read up: %v", version, err)
				}
				_ = up.Close()

				down, _, err := src.ReadDown(version)
				if err != nil {
					t.Fatalf("version %d: read down: %v", version, err)
				}
				_ = down.Close()

				version, err = src.Next(version)
				if errors.Is(err, fs.ErrNotExist) {
					return
				}

				if err != nil {
					t.Fatalf("next after %d: %v", version, err)
				}
			}
		})
	}
}
