package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"tickwork/internal/audit"
	"tickwork/internal/job"
	"tickwork/pkg/logx"
)

// AuditLog returns a persistent audit.Log backed by this database. Entries
// recorded through it survive restarts, unlike the default in-memory log.
func (s *sqliteStore) AuditLog() audit.Log {
	return &sqliteAudit{db: s.db, log: s.log}
}

// AuditLogger is implemented by stores that can persist the audit trail.
type AuditLogger interface {
	AuditLog() audit.Log
}

type sqliteAudit struct {
	db  *sql.DB
	log logx.Logger
}

// Record appends one entry. The audit.Log contract has no error return;
// a failed insert only loses that entry, so it is logged and dropped.
func (a *sqliteAudit) Record(e audit.Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	var meta any
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = string(b)
		}
	}
	var dur any
	if e.DurationMS > 0 {
		dur = e.DurationMS
	}
	var errStr any
	if e.Error != "" {
		errStr = e.Error
	}
	_, err := a.db.ExecContext(context.Background(),
		`INSERT INTO audit(at, event_type, job_id, job_name, action, success, duration_ms, err, meta)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.EventType), e.JobID, e.JobName,
		e.Action, boolInt(e.Success), dur, errStr, meta,
	)
	if err != nil {
		a.log.Warn("audit insert failed", logx.Err(err), logx.String("job_id", e.JobID))
	}
}

func (a *sqliteAudit) ByJob(jobID string) []audit.Entry {
	return a.query(`SELECT at, event_type, job_id, job_name, action, success, duration_ms, err, meta
		FROM audit WHERE job_id = ? ORDER BY id`, jobID)
}

func (a *sqliteAudit) ByType(t audit.EventType) []audit.Entry {
	return a.query(`SELECT at, event_type, job_id, job_name, action, success, duration_ms, err, meta
		FROM audit WHERE event_type = ? ORDER BY id`, string(t))
}

func (a *sqliteAudit) All() []audit.Entry {
	return a.query(`SELECT at, event_type, job_id, job_name, action, success, duration_ms, err, meta
		FROM audit ORDER BY id`)
}

func (a *sqliteAudit) Clear() {
	if _, err := a.db.ExecContext(context.Background(), `DELETE FROM audit`); err != nil {
		a.log.Warn("audit clear failed", logx.Err(err))
	}
}

func (a *sqliteAudit) query(q string, args ...any) []audit.Entry {
	rows, err := a.db.QueryContext(context.Background(), q, args...)
	if err != nil {
		a.log.Warn("audit query failed", logx.Err(err))
		return nil
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			at, eventType, jobID, jobName, action string
			success                               int
			dur                                   sql.NullInt64
			errStr, meta                          sql.NullString
		)
		if err := rows.Scan(&at, &eventType, &jobID, &jobName, &action, &success, &dur, &errStr, &meta); err != nil {
			a.log.Warn("audit scan failed", logx.Err(err))
			return out
		}
		e := audit.Entry{
			EventType:  audit.EventType(eventType),
			JobID:      jobID,
			JobName:    jobName,
			Action:     action,
			Success:    success != 0,
			DurationMS: dur.Int64,
			Error:      errStr.String,
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.Timestamp = ts
		}
		if meta.Valid && meta.String != "" {
			var m map[string]any
			if err := json.Unmarshal([]byte(meta.String), &m); err == nil {
				e.Metadata = job.CloneParams(m)
			}
		}
		out = append(out, e)
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
