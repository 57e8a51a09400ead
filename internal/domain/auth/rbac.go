package auth

import (
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
)

// Authorize is the per-request access decision, evaluated after session
// resolution. An empty required set means the route is public: any principal,
// including none, is allowed. A nil principal on a guarded route yields
// Unauthorized ("prove who you are"); a resolved principal whose role is not
// in the set yields Forbidden ("known but not permitted").
//
// The decision is made purely against the session snapshot. An administrator
// changing a subject's role does not affect sessions issued earlier.
func Authorize(required []Role, p *Principal) error {
	if len(required) == 0 {
		return nil
	}
	if p == nil {
		return apperrors.Unauthorized("not logged in")
	}
	for _, r := range required {
		if p.Role == r {
			return nil
		}
	}
	return apperrors.Forbidden(roleStrings(required), string(p.Role))
}

func roleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
