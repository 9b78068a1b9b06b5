package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/jeajar/scruffy/pkg/loans"
)

// SQL driver names.
const (
	// DriverMattn is the cgo driver github.com/mattn/go-sqlite3.
	DriverMattn = "sqlite3"
	// DriverModernc is the pure Go driver modernc.org/sqlite.
	DriverModernc = "sqlite"
)

// timeLayout has a fixed-width fraction so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Driver selects the SQL driver ("sqlite3" or "sqlite").
	// Default: "sqlite3"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       DriverMattn,
		Path:         "data/scruffy.db",
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// dsn builds the connection string; both drivers apply pragmas per
// connection, but with different query syntax.
func (c *SQLiteConfig) dsn() string {
	ms := c.BusyTimeout.Milliseconds()
	switch c.Driver {
	case DriverModernc:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", c.Path, ms)
		if c.WALMode {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		return dsn
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", c.Path, ms)
		if c.WALMode {
			dsn += "&_journal_mode=WAL"
		}
		return dsn
	}
}

// SQLiteStorage implements loans.Store using SQLite.
type SQLiteStorage struct {
	db      *sql.DB
	config  *SQLiteConfig
	version uint
	logger  *slog.Logger
}

// NewSQLiteStorage opens the database and applies pending migrations.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverMattn
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 4
	}

	logger := slog.Default().With("component", "loans.storage.sqlite")

	db, err := sql.Open(config.Driver, config.dsn())
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, loans.NewStorageError("sqlite", "ping", err)
	}

	version, err := migrateUp(db, config.Driver)
	if err != nil {
		db.Close()
		return nil, loans.NewStorageError("sqlite", "migrate", err)
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"schema_version", version,
	)

	return &SQLiteStorage{db: db, config: config, version: version, logger: logger}, nil
}

// SchemaVersion returns the migration version the database was brought to
// when the storage was opened.
func (s *SQLiteStorage) SchemaVersion() uint {
	return s.version
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return loans.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return loans.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// CreateSchedule validates and inserts a schedule.
func (s *SQLiteStorage) CreateSchedule(ctx context.Context, jobType loans.JobType, cronExpr string, enabled bool) (*loans.Schedule, error) {
	sched, err := newSchedule(jobType, cronExpr, enabled, time.Now())
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules (job_type, cron_expression, enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(sched.JobType), sched.CronExpression, sched.Enabled,
		formatTime(sched.CreatedAt), formatTime(sched.UpdatedAt),
	)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "create_schedule", err)
	}
	if sched.ID, err = res.LastInsertId(); err != nil {
		return nil, loans.NewStorageError("sqlite", "create_schedule", err)
	}

	s.logger.Debug("schedule created", "schedule_id", sched.ID, "job_type", sched.JobType, "cron", sched.CronExpression)
	return sched, nil
}

const scheduleColumns = `id, job_type, cron_expression, enabled, created_at, updated_at`

// GetSchedule returns a schedule by id.
func (s *SQLiteStorage) GetSchedule(ctx context.Context, id int64) (*loans.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loans.NewNotFoundError("schedule", id)
	}
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "get_schedule", err)
	}
	return sched, nil
}

// UpdateSchedule applies patch inside a transaction.
func (s *SQLiteStorage) UpdateSchedule(ctx context.Context, id int64, patch loans.SchedulePatch) (*loans.Schedule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "update_schedule", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loans.NewNotFoundError("schedule", id)
	}
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "update_schedule", err)
	}

	if err := patch.Apply(sched); err != nil {
		return nil, err
	}
	sched.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE schedules SET job_type = ?, cron_expression = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		string(sched.JobType), sched.CronExpression, sched.Enabled, formatTime(sched.UpdatedAt), id,
	)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "update_schedule", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, loans.NewStorageError("sqlite", "update_schedule", err)
	}

	return sched, nil
}

// DeleteSchedule removes a schedule.
func (s *SQLiteStorage) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return loans.NewStorageError("sqlite", "delete_schedule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return loans.NewStorageError("sqlite", "delete_schedule", err)
	}
	if n == 0 {
		return loans.NewNotFoundError("schedule", id)
	}
	return nil
}

// ListSchedules returns all schedules ordered by id.
func (s *SQLiteStorage) ListSchedules(ctx context.Context) ([]*loans.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "list_schedules", err)
	}
	defer rows.Close()

	var out []*loans.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, loans.NewStorageError("sqlite", "list_schedules", err)
		}
		out = append(out, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, loans.NewStorageError("sqlite", "list_schedules", err)
	}
	return out, nil
}

// AppendJobRun inserts the run, its success flag and its summary as a
// single row.
func (s *SQLiteStorage) AppendJobRun(ctx context.Context, run *loans.JobRun) error {
	summary, err := marshalSummary(run)
	if err != nil {
		return loans.NewStorageError("sqlite", "append_job_run", err)
	}

	var errMsg, started any
	if run.ErrorMessage != "" {
		errMsg = run.ErrorMessage
	}
	if !run.StartedAt.IsZero() {
		started = formatTime(run.StartedAt)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO job_runs (job_type, finished_at, success, error_message, summary, run_id, trigger_source, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(run.JobType), formatTime(run.FinishedAt), run.Success, errMsg, summary,
		run.RunID, run.Trigger, started,
	)
	if err != nil {
		return loans.NewStorageError("sqlite", "append_job_run", err)
	}
	if run.ID, err = res.LastInsertId(); err != nil {
		return loans.NewStorageError("sqlite", "append_job_run", err)
	}
	return nil
}

// PruneJobRuns deletes old runs in one transaction.
func (s *SQLiteStorage) PruneJobRuns(ctx context.Context, cutoff time.Time, keep int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, loans.NewStorageError("sqlite", "prune_job_runs", err)
	}
	defer tx.Rollback()

	var removed int64
	if !cutoff.IsZero() {
		res, err := tx.ExecContext(ctx, `DELETE FROM job_runs WHERE finished_at < ?`, formatTime(cutoff))
		if err != nil {
			return 0, loans.NewStorageError("sqlite", "prune_job_runs", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	if keep > 0 {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM job_runs WHERE id NOT IN (
			     SELECT id FROM job_runs ORDER BY finished_at DESC, id DESC LIMIT ?
			 )`, keep)
		if err != nil {
			return 0, loans.NewStorageError("sqlite", "prune_job_runs", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, loans.NewStorageError("sqlite", "prune_job_runs", err)
	}
	return removed, nil
}

// ListJobRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) ListJobRuns(ctx context.Context, limit int) ([]*loans.JobRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_type, finished_at, success, error_message, summary, run_id, trigger_source, started_at
		 FROM job_runs ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "list_job_runs", err)
	}
	defer rows.Close()

	var out []*loans.JobRun
	for rows.Next() {
		var (
			run                    loans.JobRun
			jobType, finished      string
			errMsg, summary, start sql.NullString
		)
		if err := rows.Scan(&run.ID, &jobType, &finished, &run.Success, &errMsg, &summary,
			&run.RunID, &run.Trigger, &start); err != nil {
			return nil, loans.NewStorageError("sqlite", "list_job_runs", err)
		}
		run.JobType = loans.JobType(jobType)
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, loans.NewStorageError("sqlite", "list_job_runs", err)
		}
		if start.Valid {
			if run.StartedAt, err = parseTime(start.String); err != nil {
				return nil, loans.NewStorageError("sqlite", "list_job_runs", err)
			}
		}
		run.ErrorMessage = errMsg.String
		if summary.Valid {
			if err := unmarshalSummary(&run, []byte(summary.String)); err != nil {
				return nil, loans.NewStorageError("sqlite", "list_job_runs", err)
			}
		}
		out = append(out, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, loans.NewStorageError("sqlite", "list_job_runs", err)
	}
	return out, nil
}

const requestColumns = `id, external_request_id, media_type, media_id, title, requested_by, requested_at,
	available_since, extension_days, extension_granted_at, extension_granted_by`

// UpsertRequest records an observation. available_since is only written
// while it is still NULL.
func (s *SQLiteStorage) UpsertRequest(ctx context.Context, observed *loans.Request) (*loans.Request, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (external_request_id, media_type, media_id, title, requested_by, requested_at, available_since)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (external_request_id) DO UPDATE SET
			media_type      = excluded.media_type,
			media_id        = excluded.media_id,
			title           = CASE WHEN excluded.title <> '' THEN excluded.title ELSE requests.title END,
			requested_by    = CASE WHEN excluded.requested_by <> '' THEN excluded.requested_by ELSE requests.requested_by END,
			requested_at    = COALESCE(excluded.requested_at, requests.requested_at),
			available_since = COALESCE(requests.available_since, excluded.available_since)`,
		observed.ExternalRequestID, string(observed.MediaType), observed.MediaID, observed.Title,
		observed.RequestedBy, nullTime(timePtr(observed.RequestedAt)), nullTime(observed.AvailableSince),
	)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "upsert_request", err)
	}
	return s.GetRequest(ctx, observed.ExternalRequestID)
}

// GetRequest returns the request with the given catalog id.
func (s *SQLiteStorage) GetRequest(ctx context.Context, externalRequestID int) (*loans.Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE external_request_id = ?`, externalRequestID)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loans.NewNotFoundError("request", externalRequestID)
	}
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "get_request", err)
	}
	return req, nil
}

// ListRequests returns every stored request.
func (s *SQLiteStorage) ListRequests(ctx context.Context) ([]*loans.Request, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM requests ORDER BY external_request_id`)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "list_requests", err)
	}
	defer rows.Close()

	var out []*loans.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, loans.NewStorageError("sqlite", "list_requests", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, loans.NewStorageError("sqlite", "list_requests", err)
	}
	return out, nil
}

// GrantExtension writes ext only where no extension exists yet.
func (s *SQLiteStorage) GrantExtension(ctx context.Context, externalRequestID int, ext loans.Extension) (*loans.Request, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET extension_days = ?, extension_granted_at = ?, extension_granted_by = ?
		 WHERE external_request_id = ? AND extension_days IS NULL`,
		ext.Days, formatTime(ext.GrantedAt), ext.GrantedBy, externalRequestID,
	)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "grant_extension", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "grant_extension", err)
	}

	req, err := s.GetRequest(ctx, externalRequestID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, loans.NewConflictError("request", externalRequestID, "already extended")
	}
	return req, nil
}

// DeleteRequest removes a request and its reminder history.
func (s *SQLiteStorage) DeleteRequest(ctx context.Context, externalRequestID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return loans.NewStorageError("sqlite", "delete_request", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE external_request_id = ?`, externalRequestID)
	if err != nil {
		return loans.NewStorageError("sqlite", "delete_request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return loans.NewStorageError("sqlite", "delete_request", err)
	}
	if n == 0 {
		return loans.NewNotFoundError("request", externalRequestID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE external_request_id = ?`, externalRequestID); err != nil {
		return loans.NewStorageError("sqlite", "delete_request", err)
	}
	if err := tx.Commit(); err != nil {
		return loans.NewStorageError("sqlite", "delete_request", err)
	}
	return nil
}

// PruneRequests removes requests the catalog no longer lists.
func (s *SQLiteStorage) PruneRequests(ctx context.Context, keep []int) (int, error) {
	keepSet := make(map[int]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, loans.NewStorageError("sqlite", "prune_requests", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT external_request_id FROM requests`)
	if err != nil {
		return 0, loans.NewStorageError("sqlite", "prune_requests", err)
	}
	var stale []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, loans.NewStorageError("sqlite", "prune_requests", err)
		}
		if _, ok := keepSet[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, loans.NewStorageError("sqlite", "prune_requests", err)
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE external_request_id = ?`, id); err != nil {
			return 0, loans.NewStorageError("sqlite", "prune_requests", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE external_request_id = ?`, id); err != nil {
			return 0, loans.NewStorageError("sqlite", "prune_requests", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, loans.NewStorageError("sqlite", "prune_requests", err)
	}

	if len(stale) > 0 {
		s.logger.Info("pruned requests no longer in catalog", "count", len(stale))
	}
	return len(stale), nil
}

// ReminderSent reports whether the window was already reminded.
func (s *SQLiteStorage) ReminderSent(ctx context.Context, externalRequestID int, window string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders WHERE external_request_id = ? AND reminder_window = ?`,
		externalRequestID, window,
	).Scan(&n)
	if err != nil {
		return false, loans.NewStorageError("sqlite", "reminder_sent", err)
	}
	return n > 0, nil
}

// RecordReminder marks the window as reminded.
func (s *SQLiteStorage) RecordReminder(ctx context.Context, externalRequestID int, window string, sentAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (external_request_id, reminder_window, sent_at) VALUES (?, ?, ?)
		 ON CONFLICT (external_request_id, reminder_window) DO NOTHING`,
		externalRequestID, window, formatTime(sentAt),
	)
	if err != nil {
		return loans.NewStorageError("sqlite", "record_reminder", err)
	}
	return nil
}

// GetSettings returns every stored setting.
func (s *SQLiteStorage) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, loans.NewStorageError("sqlite", "get_settings", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, loans.NewStorageError("sqlite", "get_settings", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, loans.NewStorageError("sqlite", "get_settings", err)
	}
	return out, nil
}

// PutSettings upserts values in one transaction.
func (s *SQLiteStorage) PutSettings(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return loans.NewStorageError("sqlite", "put_settings", err)
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := formatTime(time.Now())
	for _, k := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, values[k], now,
		)
		if err != nil {
			return loans.NewStorageError("sqlite", "put_settings", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return loans.NewStorageError("sqlite", "put_settings", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (*loans.Schedule, error) {
	var (
		sched            loans.Schedule
		jobType          string
		created, updated string
	)
	if err := row.Scan(&sched.ID, &jobType, &sched.CronExpression, &sched.Enabled, &created, &updated); err != nil {
		return nil, err
	}
	sched.JobType = loans.JobType(jobType)

	var err error
	if sched.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if sched.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &sched, nil
}

func scanRequest(row scanner) (*loans.Request, error) {
	var (
		req                        loans.Request
		mediaType                  string
		requestedAt, since         sql.NullString
		extDays                    sql.NullInt64
		extGrantedAt, extGrantedBy sql.NullString
	)
	if err := row.Scan(&req.ID, &req.ExternalRequestID, &mediaType, &req.MediaID, &req.Title, &req.RequestedBy,
		&requestedAt, &since, &extDays, &extGrantedAt, &extGrantedBy); err != nil {
		return nil, err
	}
	req.MediaType = loans.MediaType(mediaType)

	if requestedAt.Valid {
		t, err := parseTime(requestedAt.String)
		if err != nil {
			return nil, err
		}
		req.RequestedAt = t
	}
	if since.Valid {
		t, err := parseTime(since.String)
		if err != nil {
			return nil, err
		}
		req.AvailableSince = &t
	}
	if extDays.Valid {
		granted, err := parseTime(extGrantedAt.String)
		if err != nil {
			return nil, err
		}
		req.Extension = &loans.Extension{
			Days:      int(extDays.Int64),
			GrantedAt: granted,
			GrantedBy: extGrantedBy.String,
		}
	}
	return &req, nil
}

// storedSummary is the JSON layout of the job_runs.summary column.
type storedSummary struct {
	Check   *loans.CheckSummary   `json:"check,omitempty"`
	Process *loans.ProcessSummary `json:"process,omitempty"`
}

func marshalSummary(run *loans.JobRun) (any, error) {
	if run.Check == nil && run.Process == nil {
		return nil, nil
	}
	data, err := json.Marshal(storedSummary{Check: run.Check, Process: run.Process})
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return string(data), nil
}

func unmarshalSummary(run *loans.JobRun, data []byte) error {
	var s storedSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode summary of run %d: %w", run.ID, err)
	}
	run.Check = s.Check
	run.Process = s.Process
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
