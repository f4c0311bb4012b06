// Package authz holds the authorization predicate for club-membership
// applications. The three predicates are independent: edit does not imply
// delete and vice versa. Unrecognized roles are denied everything.
package authz

import "ppmkconnect-core/internal/domain"

// CanView reports whether user may see app at all. The store filters
// every collection it hands out through this predicate.
func CanView(user domain.CurrentUser, app domain.Application) bool {
	if app.ApplicantID == user.ID {
		return true
	}
	switch user.Role {
	case domain.RoleClubAdmin:
		return user.InScope(app.ClubID)
	case domain.RoleHicom, domain.RoleSuperAdmin:
		return true
	}
	return false
}

// CanEdit reports whether user may mutate app's content fields or drive
// its status transition. Applicants keep edit rights only while the
// application is pending; reviewers keep them throughout.
func CanEdit(user domain.CurrentUser, app domain.Application) bool {
	if app.ApplicantID == user.ID && app.Status == domain.ApplicationStatusPending {
		return true
	}
	switch user.Role {
	case domain.RoleClubAdmin:
		return user.InScope(app.ClubID)
	case domain.RoleHicom, domain.RoleSuperAdmin:
		return true
	}
	return false
}

// CanReview reports whether user may approve or reject app. Unlike
// CanEdit there is no applicant clause: applicants never review their
// own applications.
func CanReview(user domain.CurrentUser, app domain.Application) bool {
	switch user.Role {
	case domain.RoleClubAdmin:
		return user.InScope(app.ClubID)
	case domain.RoleHicom, domain.RoleSuperAdmin:
		return true
	}
	return false
}

// CanDelete reports whether user may hard-delete app. Only the applicant
// of a still-pending application and the top administrative role may.
func CanDelete(user domain.CurrentUser, app domain.Application) bool {
	if app.ApplicantID == user.ID && app.Status == domain.ApplicationStatusPending {
		return true
	}
	return user.Role == domain.RoleSuperAdmin
}
