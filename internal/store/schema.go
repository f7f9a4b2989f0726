package store

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
        id              TEXT PRIMARY KEY,
        name            TEXT NOT NULL,
        address         TEXT,
        client_name     TEXT,
        created_at      TEXT NOT NULL,
        updated_at      TEXT NOT NULL,
        media_count     INTEGER NOT NULL DEFAULT 0,
        task_count      INTEGER NOT NULL DEFAULT 0,
        open_task_count INTEGER NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS areas (
        id         TEXT PRIMARY KEY,
        project_id TEXT NOT NULL,
        type       TEXT NOT NULL,
        label      TEXT NOT NULL,
        created_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_areas_project ON areas(project_id)`,
	`CREATE TABLE IF NOT EXISTS media_assets (
        id          TEXT PRIMARY KEY,
        project_id  TEXT NOT NULL,
        area_id     TEXT,
        area_type   TEXT,
        kind        TEXT NOT NULL,
        uri         TEXT,
        captured_at TEXT NOT NULL,
        sync_status TEXT NOT NULL,
        session_id  TEXT,
        metadata    TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_media_project ON media_assets(project_id)`,
	`CREATE TABLE IF NOT EXISTS audio_notes (
        id              TEXT PRIMARY KEY,
        project_id      TEXT NOT NULL,
        area_id         TEXT,
        area_type       TEXT,
        uri             TEXT,
        duration_ms     INTEGER NOT NULL DEFAULT 0,
        captured_at     TEXT NOT NULL,
        sync_status     TEXT NOT NULL,
        session_id      TEXT,
        linked_media_id TEXT,
        transcript      TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_audio_project ON audio_notes(project_id)`,
	`CREATE TABLE IF NOT EXISTS capture_sessions (
        id               TEXT PRIMARY KEY,
        project_id       TEXT NOT NULL,
        area_id          TEXT,
        area_type        TEXT,
        mode             TEXT NOT NULL,
        session_type     TEXT NOT NULL,
        started_at       TEXT NOT NULL,
        ended_at         TEXT,
        media_ids        TEXT NOT NULL DEFAULT '[]',
        audio_ids        TEXT NOT NULL DEFAULT '[]',
        webhook_status   TEXT NOT NULL,
        webhook_result   TEXT,
        meeting_metadata TEXT,
        approval_status  TEXT,
        approved_at      TEXT,
        approved_by      TEXT,
        created_at       TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_status ON capture_sessions(webhook_status)`,
	`CREATE TABLE IF NOT EXISTS tasks (
        id          TEXT PRIMARY KEY,
        project_id  TEXT NOT NULL,
        area_id     TEXT,
        area_type   TEXT,
        title       TEXT NOT NULL,
        description TEXT,
        status      TEXT NOT NULL,
        priority    TEXT NOT NULL,
        tags        TEXT NOT NULL DEFAULT '[]',
        created_by  TEXT NOT NULL,
        confidence  REAL,
        created_at  TEXT NOT NULL,
        updated_at  TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
	`CREATE TABLE IF NOT EXISTS evidence_links (
        id          TEXT PRIMARY KEY,
        task_id     TEXT NOT NULL,
        target_type TEXT NOT NULL,
        target_id   TEXT NOT NULL,
        link_type   TEXT NOT NULL,
        link_score  REAL NOT NULL DEFAULT 0.5,
        created_by  TEXT NOT NULL,
        created_at  TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_links_task ON evidence_links(task_id)`,
	`CREATE TABLE IF NOT EXISTS transcript_segments (
        id            TEXT PRIMARY KEY,
        audio_note_id TEXT,
        project_id    TEXT NOT NULL,
        text          TEXT,
        start_ms      INTEGER NOT NULL DEFAULT 0,
        end_ms        INTEGER NOT NULL DEFAULT 0,
        speaker_role  TEXT,
        confidence    REAL NOT NULL DEFAULT 1
    )`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_project ON transcript_segments(project_id)`,
	`CREATE TABLE IF NOT EXISTS settings (
        id               INTEGER PRIMARY KEY CHECK (id = 1),
        wifi_only_upload INTEGER NOT NULL DEFAULT 1,
        auto_sync        INTEGER NOT NULL DEFAULT 1,
        webhook_url      TEXT NOT NULL DEFAULT ''
    )`,
}
