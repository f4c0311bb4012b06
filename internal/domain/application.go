package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// Application is a member's request to join a club, tracked through the
// review workflow. Applicant and club fields are snapshots taken at
// submission time so history survives later edits to the user or club
// records.
type Application struct {
	ID             string            `json:"id"`
	ApplicantID    string            `json:"applicant_id"`
	ApplicantName  string            `json:"applicant_name"`
	ApplicantEmail string            `json:"applicant_email"`
	ClubID         string            `json:"club_id"`
	ClubName       string            `json:"club_name"`
	Status         ApplicationStatus `json:"status"`
	AppliedAt      time.Time         `json:"applied_at"`
	Motivation     string            `json:"motivation"`
	Experience     string            `json:"experience"`
	Skills         []string          `json:"skills"`
	AdditionalInfo string            `json:"additional_info,omitempty"`

	// Review audit fields. Set exactly once, at the approve/reject
	// transition; nil/empty while PENDING.
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Feedback   string     `json:"feedback,omitempty"`
}

// ApplicationDraft carries the applicant-authored fields of a new
// submission. ID, status and timestamps are assigned by the store.
type ApplicationDraft struct {
	ApplicantID    string   `json:"applicant_id"`
	ApplicantName  string   `json:"applicant_name"`
	ApplicantEmail string   `json:"applicant_email"`
	ClubID         string   `json:"club_id"`
	ClubName       string   `json:"club_name"`
	Motivation     string   `json:"motivation"`
	Experience     string   `json:"experience"`
	Skills         []string `json:"skills"`
	AdditionalInfo string   `json:"additional_info,omitempty"`
}

// ApplicationUpdate is a partial update of content fields. Nil pointers
// leave the field untouched. Identity, status and audit fields are not
// reachable through this type.
type ApplicationUpdate struct {
	Motivation     *string   `json:"motivation,omitempty"`
	Experience     *string   `json:"experience,omitempty"`
	Skills         *[]string `json:"skills,omitempty"`
	AdditionalInfo *string   `json:"additional_info,omitempty"`
}
