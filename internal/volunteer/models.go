// Package volunteer holds the volunteer application ledger entry and its
// state machine: applied -> assigned -> completed, with applied|assigned ->
// withdrawn as the escape hatch. Completion attaches the certificate
// approval sub-state, mirroring the donation path.
package volunteer

import (
	"math"
	"strings"
	"time"

	"ngoconnect/internal/certificate"
	id "ngoconnect/pkg/domain"
)

// Status is the lifecycle state of a volunteer application.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusWithdrawn Status = "withdrawn"
)

// Active reports whether the application still occupies a spot on the
// opportunity. Withdrawn applications free their spot.
func (s Status) Active() bool {
	return s == StatusApplied || s == StatusAssigned
}

// Application is a volunteer's engagement with one opportunity. Contact and
// preference fields are snapshots taken at apply time, not live links to the
// applicant's profile.
//
// Invariants:
//   - ActivityHours and CompletedAt are set only when Status == StatusCompleted
//   - withdrawal is permitted only from applied/assigned and is terminal
//   - Approval leaves ApprovalNotRequested only when the application completes
type Application struct {
	ID            id.ApplicationID `json:"id"`
	OpportunityID id.OpportunityID `json:"opportunity_id"`
	ApplicantID   id.UserID        `json:"-"`
	NGOID         id.NGOID         `json:"-"`

	// Applicant snapshot captured at apply time.
	FullName          string `json:"full_name"`
	Email             string `json:"-"`
	Phone             string `json:"phone,omitempty"`
	PreferredActivity string `json:"preferred_activity,omitempty"`
	Availability      string `json:"availability,omitempty"`
	Motivation        string `json:"motivation,omitempty"`

	OpportunityTitle string `json:"opportunity_title"`
	NGOName          string `json:"ngo_name"`

	Status        Status  `json:"status"`
	AssignedTask  string  `json:"assigned_task,omitempty"`
	ActivityHours float64 `json:"activity_hours"`

	Approval id.ApprovalState `json:"certificate_approval"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ApplyAssignment records the task the organisation assigned.
func (a *Application) ApplyAssignment(task string) {
	a.Status = StatusAssigned
	a.AssignedTask = task
}

// ApplyWithdrawal moves the application to its terminal withdrawn state.
func (a *Application) ApplyWithdrawal() {
	a.Status = StatusWithdrawn
}

// ApplyCompletion finalizes the engagement and requests certificate
// approval. Hours are rounded to one decimal place; zero means the
// organisation did not record them.
func (a *Application) ApplyCompletion(now time.Time, hours float64) {
	a.Status = StatusCompleted
	a.ActivityHours = RoundHours(hours)
	a.CompletedAt = &now
	a.Approval.Request(now)
}

// ApprovalState exposes the certificate approval sub-state for the gate.
func (a *Application) ApprovalState() *id.ApprovalState {
	return &a.Approval
}

// CertificateSpec describes the volunteer certificate minted on approval.
func (a *Application) CertificateSpec() certificate.Spec {
	return certificate.Spec{
		Entity:        certificate.VolunteerRef(a.ID),
		BeneficiaryID: a.ApplicantID,
		NGOID:         a.NGOID,
		Title:         "Certificate of Volunteer Service",
		Metadata: certificate.Metadata{
			RecipientName:  a.FullName,
			RecipientEmail: a.Email,
			NGOName:        a.NGOName,
			ActivityTitle:  a.OpportunityTitle,
			AssignedTask:   a.AssignedTask,
			CompletionDate: a.CompletedAt,
			ActivityHours:  a.ActivityHours,
		},
	}
}

// RoundHours normalizes activity hours to one decimal place.
func RoundHours(hours float64) float64 {
	return math.Round(hours*10) / 10
}

// DefaultTask is assigned when no opportunity skill matches the applicant's
// stated preference.
const DefaultTask = "General Volunteer Support"

// SuggestTask picks an initial task for a new application by matching the
// applicant's preferred activity against the opportunity's skill list. The
// organisation can override it later via assignment.
func SuggestTask(preferred string, skills []string) string {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred == "" {
		return DefaultTask
	}
	for _, skill := range skills {
		normalized := strings.ToLower(strings.TrimSpace(skill))
		if normalized == "" {
			continue
		}
		if strings.Contains(normalized, preferred) || strings.Contains(preferred, normalized) {
			return skill
		}
	}
	return DefaultTask
}
