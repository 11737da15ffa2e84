package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
)

// IsUniqueViolation reports whether err is a duplicate key failure. When
// constraint is set, the failure must also name that constraint (or, on
// sqlite, that table.column).
func IsUniqueViolation(err error, constraint string) bool {
	if !pkgerrors.IsUniqueViolation(err) {
		return false
	}
	if constraint == "" {
		return true
	}
	if dump := pkgerrors.Dump(err); dump.PGConstraint != "" {
		return dump.PGConstraint == constraint
	}
	return strings.Contains(err.Error(), constraint)
}
