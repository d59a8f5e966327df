package archive

const SQLITE_SCHEMA = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP,
    entity TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status
ON runs (status);
`

const POSTGRES_SCHEMA = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    entity JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status
ON runs (status);
`

func schemaForDriver(driver string) (string, error) {
	switch driver {
	case SQLITE_DRIVER:
		return SQLITE_SCHEMA, nil
	case POSTGRES_DRIVER:
		return POSTGRES_SCHEMA, nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}
