package credentials

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/desertthunder/stx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"Memory": func(t *testing.T) Store { return NewMemoryStore() },
		"SQLite": func(t *testing.T) Store { return NewSQLiteStore(setupTestDB(t)) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("Get Missing", func(t *testing.T) {
				s := newStore(t)
				if _, err := s.Get(AccessTokenKey); !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			})

			t.Run("Set Overwrites", func(t *testing.T) {
				s := newStore(t)
				if err := s.Set(AccessTokenKey, "T1"); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
				if err := s.Set(AccessTokenKey, "T2"); err != nil {
					t.Fatalf("Set() error = %v", err)
				}

				got, err := s.Get(AccessTokenKey)
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if got != "T2" {
					t.Errorf("expected T2, got %s", got)
				}
			})

			t.Run("Delete", func(t *testing.T) {
				s := newStore(t)
				s.Set(AccessTokenKey, "T1")

				if err := s.Delete(AccessTokenKey); err != nil {
					t.Fatalf("Delete() error = %v", err)
				}
				if _, err := s.Get(AccessTokenKey); !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound after delete, got %v", err)
				}
				if err := s.Delete(AccessTokenKey); err != nil {
					t.Errorf("deleting an absent key should not fail: %v", err)
				}
			})
		})
	}
}

func TestSlot(t *testing.T) {
	t.Run("Empty Slot Means No Credential", func(t *testing.T) {
		slot := NewSlot(NewMemoryStore())

		token, err := slot.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if token != "" {
			t.Errorf("expected empty token, got %q", token)
		}
	})

	t.Run("Uses Fixed Key", func(t *testing.T) {
		store := NewMemoryStore()
		slot := NewSlot(store)

		if err := slot.SetToken("T1"); err != nil {
			t.Fatalf("SetToken() error = %v", err)
		}

		raw, err := store.Get("accessToken")
		if err != nil || raw != "T1" {
			t.Errorf("expected T1 under accessToken, got %q (%v)", raw, err)
		}
	})

	t.Run("SetToken Empty Clears", func(t *testing.T) {
		store := NewMemoryStore()
		slot := NewSlot(store)
		slot.SetToken("T1")

		if err := slot.SetToken(""); err != nil {
			t.Fatalf("SetToken() error = %v", err)
		}
		if _, err := store.Get(AccessTokenKey); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected slot to be cleared, got %v", err)
		}
	})

	t.Run("Named Slot", func(t *testing.T) {
		store := NewMemoryStore()
		slot := NewNamedSlot(store, "other")
		slot.SetToken("X")

		if _, err := store.Get(AccessTokenKey); !errors.Is(err, ErrNotFound) {
			t.Error("named slot should not write the access token key")
		}
	})

	t.Run("Propagates Store Errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT value FROM kv").WithArgs(AccessTokenKey).WillReturnError(errors.New("disk I/O error"))

		slot := NewSlot(NewSQLiteStore(db))
		if _, err := slot.Token(); err == nil {
			t.Fatal("expected error from failing store")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestSQLiteStoreErrors(t *testing.T) {
	t.Run("Set", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec("INSERT INTO kv").WillReturnError(errors.New("database is locked"))

		if err := NewSQLiteStore(db).Set(AccessTokenKey, "T1"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec("DELETE FROM kv").WithArgs(AccessTokenKey).WillReturnError(errors.New("database is locked"))

		if err := NewSQLiteStore(db).Delete(AccessTokenKey); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Keys", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		store.Set(CookiesKey, "[]")
		store.Set(AccessTokenKey, "T1")

		keys, err := store.Keys()
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		if len(keys) != 2 || keys[0] != AccessTokenKey || keys[1] != CookiesKey {
			t.Errorf("unexpected keys %v", keys)
		}
	})
}
