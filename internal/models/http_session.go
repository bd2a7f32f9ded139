package models

import (
	"context"
	"fmt"
)

// DeleteExpiredHTTPSessions removes expired rows from the login session
// store. Expiry is stored as a Julian day number.
func DeleteExpiredHTTPSessions(ctx context.Context, db DBTX) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expiry < julianday('now')`)
	if err != nil {
		return 0, fmt.Errorf("models: delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
