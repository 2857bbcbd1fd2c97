package datastore

import (
	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

// Schedules and actions are first-class child tables. The legacy columns on
// sources (single blob per list) are kept only so older databases can be
// upgraded once at startup.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	comparison_mode TEXT NOT NULL DEFAULT 'full_content',
	fetch_mode TEXT NOT NULL DEFAULT 'static',
	include_selector TEXT NOT NULL DEFAULT '',
	exclude_selector TEXT NOT NULL DEFAULT '',
	min_text_length INTEGER NOT NULL DEFAULT 3,
	min_word_length INTEGER NOT NULL DEFAULT 1,
	diff_algorithm TEXT NOT NULL DEFAULT 'line',
	threshold_percent INTEGER NOT NULL DEFAULT 25,
	enabled INTEGER NOT NULL DEFAULT 1,
	legacy_schedules TEXT NOT NULL DEFAULT '',
	legacy_actions TEXT NOT NULL DEFAULT '',
	legacy_interval_minutes INTEGER NOT NULL DEFAULT 0,
	last_check_time DATETIME,
	last_change_percent REAL NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS schedules (
	id TEXT PRIMARY KEY,
	source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	calendar_type TEXT NOT NULL DEFAULT 'always',
	interval_type TEXT NOT NULL DEFAULT 'periodic',
	enabled INTEGER NOT NULL DEFAULT 1,
	sort_order INTEGER NOT NULL DEFAULT 0,
	interval_minutes INTEGER NOT NULL DEFAULT 60,
	hour INTEGER NOT NULL DEFAULT 0,
	minute INTEGER NOT NULL DEFAULT 0,
	selected_date DATETIME,
	from_date DATETIME,
	to_date DATETIME,
	enabled_days INTEGER NOT NULL DEFAULT 127,
	week_parity TEXT NOT NULL DEFAULT 'both'
);
CREATE INDEX IF NOT EXISTS idx_schedules_source ON schedules(source_id);

CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	selector TEXT NOT NULL DEFAULT '',
	wait_seconds INTEGER NOT NULL DEFAULT 0,
	tap_x REAL NOT NULL DEFAULT 0,
	tap_y REAL NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1,
	sort_order INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_actions_source ON actions(source_id);

CREATE TABLE IF NOT EXISTS check_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	check_time DATETIME NOT NULL,
	success INTEGER NOT NULL,
	change_percent REAL NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	response_time_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_check_results_source ON check_results(source_id, check_time);
`

func (d *DB) initSchema() error {
	_, err := d.db.Exec(schemaSQL)
	return err
}

// migrateLegacyLists upgrades sources persisted before schedules and actions
// became child tables. Each source is visited once: a serialized list blob is
// exploded into rows, an entirely absent list synthesizes the compatibility
// default schedule from the legacy interval field.
func (d *DB) migrateLegacyLists() error {
	rows, err := d.db.Query(`
		SELECT s.id, s.legacy_schedules, s.legacy_actions, s.legacy_interval_minutes
		FROM sources s
		WHERE s.legacy_schedules != '' OR s.legacy_actions != ''
		   OR NOT EXISTS (SELECT 1 FROM schedules WHERE source_id = s.id)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type pending struct {
		sourceID        int64
		schedulesJSON   string
		actionsJSON     string
		intervalMinutes int
	}
	var work []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.sourceID, &p.schedulesJSON, &p.actionsJSON, &p.intervalMinutes); err != nil {
			return err
		}
		work = append(work, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range work {
		if err := d.migrateOneSource(p.sourceID, p.schedulesJSON, p.actionsJSON, p.intervalMinutes); err != nil {
			return errorx.Wrapf(err, "migration of source %d", p.sourceID)
		}
	}

	if len(work) > 0 {
		d.log.Info().Int("sources", len(work)).Msg("Migrated legacy schedule and action lists")
	}
	return nil
}

func (d *DB) migrateOneSource(sourceID int64, schedulesJSON, actionsJSON string, intervalMinutes int) error {
	schedules, err := models.UnmarshalScheduleList(schedulesJSON)
	if err != nil {
		d.log.Warn().Err(err).Int64("source_id", sourceID).Msg("Unparseable legacy schedule list, synthesizing default")
		schedules = nil
	}
	if len(schedules) == 0 {
		def := models.NewDefaultSchedule()
		if intervalMinutes >= models.MinIntervalMinutes {
			def.IntervalMinutes = intervalMinutes
		}
		schedules = []models.Schedule{def}
	}

	actions, err := models.UnmarshalActionList(actionsJSON)
	if err != nil {
		d.log.Warn().Err(err).Int64("source_id", sourceID).Msg("Unparseable legacy action list, dropping")
		actions = nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM schedules WHERE source_id = ?`, sourceID); err != nil {
		return err
	}
	if err := insertSchedules(tx, sourceID, schedules); err != nil {
		return err
	}
	if len(actions) > 0 {
		if _, err := tx.Exec(`DELETE FROM actions WHERE source_id = ?`, sourceID); err != nil {
			return err
		}
		if err := insertActions(tx, sourceID, actions); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`UPDATE sources SET legacy_schedules = '', legacy_actions = '', legacy_interval_minutes = 0 WHERE id = ?`,
		sourceID); err != nil {
		return err
	}
	return tx.Commit()
}
