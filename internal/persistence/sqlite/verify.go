// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// VerifyIntegrity checks an open database for structural corruption.
// Mode is "quick" (PRAGMA quick_check) or "full" (PRAGMA integrity_check).
// It returns the diagnostic rows if corruption is found, or nil if healthy.
func VerifyIntegrity(ctx context.Context, db *sql.DB, mode string) ([]string, error) {
	pragma := "PRAGMA quick_check;"
	if mode == "full" {
		pragma = "PRAGMA integrity_check;"
	}

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return nil, fmt.Errorf("integrity pragma failed: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("failed to scan integrity result row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("integrity rows: %w", err)
	}

	// success is exactly a single "ok" row
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"no results returned from integrity check"}, nil
	}
	return results, nil
}
