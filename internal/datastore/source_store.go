package datastore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

// SourceStore persists sources with their schedule and action child rows and
// appends to the immutable check-result log.
type SourceStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewSourceStore(d *DB) *SourceStore {
	return &SourceStore{
		db:  d.db,
		log: d.log.With().Str("store", "sources").Logger(),
	}
}

const sourceColumns = `id, url, name, comparison_mode, fetch_mode, include_selector, exclude_selector,
	min_text_length, min_word_length, diff_algorithm, threshold_percent, enabled,
	last_check_time, last_change_percent, last_error, consecutive_failures, created_at, updated_at`

// Create inserts the source and its child lists, assigning its identity.
func (s *SourceStore) Create(source *models.Source) error {
	now := time.Now()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO sources (url, name, comparison_mode, fetch_mode, include_selector, exclude_selector,
			min_text_length, min_word_length, diff_algorithm, threshold_percent, enabled,
			last_change_percent, last_error, consecutive_failures, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '', 0, ?, ?)`,
		source.URL, source.Name, string(source.ComparisonMode), string(source.FetchMode),
		source.IncludeSelector, source.ExcludeSelector,
		source.MinTextLength, source.MinWordLength, string(source.DiffAlgorithm),
		source.ThresholdPercent, source.Enabled, source.CreatedAt, source.UpdatedAt)
	if err != nil {
		return errorx.Wrap(err, "failed to insert source")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	source.ID = id

	if err := insertSchedules(tx, id, source.Schedules); err != nil {
		return err
	}
	if err := insertActions(tx, id, source.Actions); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.log.Info().Int64("source_id", id).Str("url", source.URL).Msg("Source created")
	return nil
}

// Update rewrites the source row and replaces its child lists.
func (s *SourceStore) Update(source *models.Source) error {
	source.UpdatedAt = time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE sources SET url = ?, name = ?, comparison_mode = ?, fetch_mode = ?,
			include_selector = ?, exclude_selector = ?, min_text_length = ?, min_word_length = ?,
			diff_algorithm = ?, threshold_percent = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		source.URL, source.Name, string(source.ComparisonMode), string(source.FetchMode),
		source.IncludeSelector, source.ExcludeSelector, source.MinTextLength, source.MinWordLength,
		string(source.DiffAlgorithm), source.ThresholdPercent, source.Enabled,
		source.UpdatedAt, source.ID)
	if err != nil {
		return errorx.Wrap(err, "failed to update source")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errorx.Wrapf(errorx.ErrNotFound, "source %d", source.ID)
	}

	if _, err := tx.Exec(`DELETE FROM schedules WHERE source_id = ?`, source.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM actions WHERE source_id = ?`, source.ID); err != nil {
		return err
	}
	if err := insertSchedules(tx, source.ID, source.Schedules); err != nil {
		return err
	}
	if err := insertActions(tx, source.ID, source.Actions); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the source; schedules, actions and check results cascade.
func (s *SourceStore) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return errorx.Wrap(err, "failed to delete source")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errorx.Wrapf(errorx.ErrNotFound, "source %d", id)
	}
	s.log.Info().Int64("source_id", id).Msg("Source deleted")
	return nil
}

// Get loads one source with its schedules and actions.
func (s *SourceStore) Get(id int64) (*models.Source, error) {
	row := s.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrapf(errorx.ErrNotFound, "source %d", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadChildren(source); err != nil {
		return nil, err
	}
	return source, nil
}

// List returns all sources ordered by identity, children included.
func (s *SourceStore) List() ([]*models.Source, error) {
	return s.list(`SELECT ` + sourceColumns + ` FROM sources ORDER BY id`)
}

// ListEnabled returns only sources eligible for scheduling.
func (s *SourceStore) ListEnabled() ([]*models.Source, error) {
	return s.list(`SELECT ` + sourceColumns + ` FROM sources WHERE enabled = 1 ORDER BY id`)
}

func (s *SourceStore) list(query string) ([]*models.Source, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errorx.Wrap(err, "failed to query sources")
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, source := range sources {
		if err := s.loadChildren(source); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

// UpdateAfterCheck persists the post-check state the orchestrator computed.
func (s *SourceStore) UpdateAfterCheck(sourceID int64, checkTime time.Time, changePercent float64, errText string, consecutiveFailures int) error {
	_, err := s.db.Exec(`
		UPDATE sources SET last_check_time = ?, last_change_percent = ?, last_error = ?,
			consecutive_failures = ?, updated_at = ?
		WHERE id = ?`,
		checkTime, changePercent, errText, consecutiveFailures, time.Now(), sourceID)
	if err != nil {
		return errorx.Wrapf(err, "failed to update source %d after check", sourceID)
	}
	return nil
}

// AppendResult appends one immutable record to the check log.
func (s *SourceStore) AppendResult(result *models.CheckResult) error {
	res, err := s.db.Exec(`
		INSERT INTO check_results (source_id, check_time, success, change_percent, error, response_time_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.SourceID, result.CheckTime, result.Success, result.ChangePercent,
		result.Error, result.ResponseTime.Milliseconds())
	if err != nil {
		return errorx.Wrap(err, "failed to append check result")
	}
	result.ID, _ = res.LastInsertId()
	return nil
}

// RecentResults returns up to limit latest check records for a source,
// newest first.
func (s *SourceStore) RecentResults(sourceID int64, limit int) ([]models.CheckResult, error) {
	rows, err := s.db.Query(`
		SELECT id, source_id, check_time, success, change_percent, error, response_time_ms
		FROM check_results WHERE source_id = ? ORDER BY check_time DESC, id DESC LIMIT ?`,
		sourceID, limit)
	if err != nil {
		return nil, errorx.Wrap(err, "failed to query check results")
	}
	defer rows.Close()

	var results []models.CheckResult
	for rows.Next() {
		var r models.CheckResult
		var ms int64
		if err := rows.Scan(&r.ID, &r.SourceID, &r.CheckTime, &r.Success, &r.ChangePercent, &r.Error, &ms); err != nil {
			return nil, err
		}
		r.ResponseTime = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SourceStore) loadChildren(source *models.Source) error {
	schedules, err := s.loadSchedules(source.ID)
	if err != nil {
		return err
	}
	source.Schedules = schedules

	actions, err := s.loadActions(source.ID)
	if err != nil {
		return err
	}
	source.Actions = actions
	return nil
}

func (s *SourceStore) loadSchedules(sourceID int64) ([]models.Schedule, error) {
	rows, err := s.db.Query(`
		SELECT id, calendar_type, interval_type, enabled, sort_order, interval_minutes,
			hour, minute, selected_date, from_date, to_date, enabled_days, week_parity
		FROM schedules WHERE source_id = ? ORDER BY sort_order, id`, sourceID)
	if err != nil {
		return nil, errorx.Wrap(err, "failed to query schedules")
	}
	defer rows.Close()

	var schedules []models.Schedule
	for rows.Next() {
		var sc models.Schedule
		var calendarType, intervalType, parity string
		var selected, from, to sql.NullTime
		if err := rows.Scan(&sc.ID, &calendarType, &intervalType, &sc.Enabled, &sc.Order,
			&sc.IntervalMinutes, &sc.Hour, &sc.Minute, &selected, &from, &to,
			&sc.EnabledDays, &parity); err != nil {
			return nil, err
		}
		sc.CalendarType = models.CalendarType(calendarType)
		sc.IntervalType = models.IntervalType(intervalType)
		sc.WeekParity = models.WeekParity(parity)
		sc.SelectedDate = selected.Time
		sc.FromDate = from.Time
		sc.ToDate = to.Time
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

func (s *SourceStore) loadActions(sourceID int64) ([]models.PageAction, error) {
	rows, err := s.db.Query(`
		SELECT id, type, label, selector, wait_seconds, tap_x, tap_y, enabled, sort_order
		FROM actions WHERE source_id = ? ORDER BY sort_order, id`, sourceID)
	if err != nil {
		return nil, errorx.Wrap(err, "failed to query actions")
	}
	defer rows.Close()

	var actions []models.PageAction
	for rows.Next() {
		var a models.PageAction
		var actionType string
		if err := rows.Scan(&a.ID, &actionType, &a.Label, &a.Selector, &a.WaitSeconds,
			&a.TapX, &a.TapY, &a.Enabled, &a.Order); err != nil {
			return nil, err
		}
		a.Type = models.ActionType(actionType)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSource(row scannable) (*models.Source, error) {
	var src models.Source
	var comparisonMode, fetchMode, diffAlgorithm string
	var lastCheck sql.NullTime
	err := row.Scan(&src.ID, &src.URL, &src.Name, &comparisonMode, &fetchMode,
		&src.IncludeSelector, &src.ExcludeSelector, &src.MinTextLength, &src.MinWordLength,
		&diffAlgorithm, &src.ThresholdPercent, &src.Enabled,
		&lastCheck, &src.LastChangePercent, &src.LastError, &src.ConsecutiveFailures,
		&src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	src.ComparisonMode = models.ComparisonMode(comparisonMode)
	src.FetchMode = models.FetchMode(fetchMode)
	src.DiffAlgorithm = models.DiffAlgorithmType(diffAlgorithm)
	src.LastCheckTime = lastCheck.Time
	return &src, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertSchedules(tx execer, sourceID int64, schedules []models.Schedule) error {
	for _, sc := range schedules {
		_, err := tx.Exec(`
			INSERT INTO schedules (id, source_id, calendar_type, interval_type, enabled, sort_order,
				interval_minutes, hour, minute, selected_date, from_date, to_date, enabled_days, week_parity)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, sourceID, string(sc.CalendarType), string(sc.IntervalType), sc.Enabled, sc.Order,
			sc.IntervalMinutes, sc.Hour, sc.Minute,
			nullTime(sc.SelectedDate), nullTime(sc.FromDate), nullTime(sc.ToDate),
			sc.EnabledDays, string(sc.WeekParity))
		if err != nil {
			return errorx.Wrap(err, "failed to insert schedule")
		}
	}
	return nil
}

func insertActions(tx execer, sourceID int64, actions []models.PageAction) error {
	for _, a := range actions {
		_, err := tx.Exec(`
			INSERT INTO actions (id, source_id, type, label, selector, wait_seconds, tap_x, tap_y, enabled, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, sourceID, string(a.Type), a.Label, a.Selector, a.WaitSeconds,
			a.TapX, a.TapY, a.Enabled, a.Order)
		if err != nil {
			return errorx.Wrap(err, "failed to insert action")
		}
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
