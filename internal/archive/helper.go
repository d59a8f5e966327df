package archive

import "fmt"

func getUnsupportedDriverError(driver string) error {
	return fmt.Errorf("unsupported driver: %s", driver)
}

// SQLite: use ? placeholders
const SQLITE_UPSERT_RUN_STATEMENT = `INSERT INTO runs (id, status, created_at, completed_at, entity) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET status = excluded.status, completed_at = excluded.completed_at, entity = excluded.entity;`

// PostgreSQL: use $1, $2 placeholders
const POSTGRES_UPSERT_RUN_STATEMENT = `INSERT INTO runs (id, status, created_at, completed_at, entity) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET status = excluded.status, completed_at = excluded.completed_at, entity = excluded.entity;`

func createUpsertRunStatement(driver string) (string, error) {
	switch driver {
	case SQLITE_DRIVER:
		return SQLITE_UPSERT_RUN_STATEMENT, nil
	case POSTGRES_DRIVER:
		return POSTGRES_UPSERT_RUN_STATEMENT, nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}

func createGetRunStatement(driver string) (string, error) {
	switch driver {
	case SQLITE_DRIVER:
		return `SELECT entity FROM runs WHERE id = ?;`, nil
	case POSTGRES_DRIVER:
		return `SELECT entity FROM runs WHERE id = $1;`, nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}

func createListRunsStatement(driver string, limit, offset int, statusFilter string) (string, []any, error) {
	switch driver {
	case SQLITE_DRIVER:
		if statusFilter != "" {
			return `SELECT entity FROM runs WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?;`, []any{statusFilter, limit, offset}, nil
		}
		return `SELECT entity FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?;`, []any{limit, offset}, nil
	case POSTGRES_DRIVER:
		if statusFilter != "" {
			return `SELECT entity FROM runs WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`, []any{statusFilter, limit, offset}, nil
		}
		return `SELECT entity FROM runs ORDER BY created_at DESC LIMIT $1 OFFSET $2;`, []any{limit, offset}, nil
	default:
		return "", nil, getUnsupportedDriverError(driver)
	}
}

func createCountRunsStatement(driver string, statusFilter string) (string, []any, error) {
	switch driver {
	case SQLITE_DRIVER:
		if statusFilter != "" {
			return `SELECT COUNT(*) FROM runs WHERE status = ?;`, []any{statusFilter}, nil
		}
		return `SELECT COUNT(*) FROM runs;`, nil, nil
	case POSTGRES_DRIVER:
		if statusFilter != "" {
			return `SELECT COUNT(*) FROM runs WHERE status = $1;`, []any{statusFilter}, nil
		}
		return `SELECT COUNT(*) FROM runs;`, nil, nil
	default:
		return "", nil, getUnsupportedDriverError(driver)
	}
}
