package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
)

// createTempDB creates a temporary SQLite database for testing.
func createTempDB(t *testing.T, driver string) (*SQLiteStorage, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Driver:       driver,
		Path:         dbPath,
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	return storage, dbPath
}

func TestSQLiteStorage(t *testing.T) {
	for _, driver := range []string{DriverMattn, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			runStoreSuite(t, func(t *testing.T) loans.Store {
				s, _ := createTempDB(t, driver)
				return s
			})
		})
	}
}

func TestSQLiteStorage_Initialize(t *testing.T) {
	for _, driver := range []string{DriverMattn, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			storage, dbPath := createTempDB(t, driver)

			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				t.Error("Database file was not created")
			}
			if err := storage.Ping(context.Background()); err != nil {
				t.Errorf("Ping() error = %v", err)
			}

			var version int
			var dirty bool
			if err := storage.db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty); err != nil {
				t.Fatalf("failed to read schema version: %v", err)
			}
			if version != 3 || dirty {
				t.Errorf("schema version = %d (dirty=%v), want 3", version, dirty)
			}
			if got := storage.SchemaVersion(); got != 3 {
				t.Errorf("SchemaVersion() = %d, want 3", got)
			}
		})
	}
}

// TestSQLiteStorage_Reopen verifies that reopening an existing database
// applies no migration and keeps every row.
func TestSQLiteStorage_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	cfg := &SQLiteConfig{Driver: DriverModernc, Path: dbPath, WALMode: true, BusyTimeout: time.Second}

	first, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	sched, err := first.CreateSchedule(ctx, loans.JobProcess, "0 19 * * *", true)
	if err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}
	if err := first.AppendJobRun(ctx, &loans.JobRun{JobType: loans.JobCheck, FinishedAt: time.Now(), Success: true,
		Check: &loans.CheckSummary{ItemsChecked: 1}}); err != nil {
		t.Fatalf("AppendJobRun() error = %v", err)
	}
	first.Close()

	second, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	if _, err := second.GetSchedule(ctx, sched.ID); err != nil {
		t.Errorf("GetSchedule() after reopen error = %v", err)
	}
	runs, err := second.ListJobRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Check == nil || runs[0].Check.ItemsChecked != 1 {
		t.Errorf("ListJobRuns() after reopen = %+v", runs)
	}
}

// TestSQLiteStorage_LegacyRuns reads rows written before summaries and
// correlation columns existed.
func TestSQLiteStorage_LegacyRuns(t *testing.T) {
	storage, _ := createTempDB(t, DriverMattn)

	_, err := storage.db.Exec(`INSERT INTO job_runs (job_type, finished_at, success) VALUES (?, ?, ?)`,
		"check", formatTime(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)), 1)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	runs, err := storage.ListJobRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListJobRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListJobRuns() returned %d runs", len(runs))
	}
	r := runs[0]
	if !r.Success || r.Check != nil || r.RunID != "" || !r.StartedAt.IsZero() {
		t.Errorf("legacy run = %+v", r)
	}
}

func TestSQLiteConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  SQLiteConfig
		want string
	}{
		{
			name: "mattn with wal",
			cfg:  SQLiteConfig{Driver: DriverMattn, Path: "/tmp/a.db", WALMode: true, BusyTimeout: 5 * time.Second},
			want: "file:/tmp/a.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL",
		},
		{
			name: "modernc without wal",
			cfg:  SQLiteConfig{Driver: DriverModernc, Path: "/tmp/a.db", BusyTimeout: time.Second},
			want: "file:/tmp/a.db?_pragma=busy_timeout(1000)&_pragma=foreign_keys(1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.dsn(); got != tt.want {
				t.Errorf("dsn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeFormatSorts(t *testing.T) {
	a := formatTime(time.Date(2026, 1, 1, 0, 0, 0, 5, time.UTC))
	b := formatTime(time.Date(2026, 1, 1, 0, 0, 0, 40, time.UTC))
	if !(a < b) {
		t.Errorf("%q should sort before %q", a, b)
	}
	parsed, err := parseTime(b)
	if err != nil {
		t.Fatalf("parseTime() error = %v", err)
	}
	if parsed.Nanosecond() != 40 {
		t.Errorf("parseTime() lost precision: %v", parsed)
	}
}

