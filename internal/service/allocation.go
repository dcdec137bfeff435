package service

import (
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

// AllocateScholarships decides the granted scholarship count at approval
// time. The grant is bounded by the professor's request: supplying a value
// above it fails, and the result is never renegotiated after approval.
func AllocateScholarships(requested, proposed int) (int, error) {
	if proposed < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "granted scholarships cannot be negative")
	}
	if proposed > requested {
		return 0, appErrors.Clone(appErrors.ErrQuotaExceeded, "granted scholarships exceed requested amount")
	}
	if proposed < requested {
		return proposed, nil
	}
	return requested, nil
}
