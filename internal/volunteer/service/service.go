// Package service implements the volunteer workflow: apply to an opportunity
// with a spot check, organisation task assignment, withdrawal, completion
// with hours, listings, and the certificate decision.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"ngoconnect/internal/approval"
	"ngoconnect/internal/campaign"
	"ngoconnect/internal/volunteer"
	"ngoconnect/internal/volunteer/metrics"
	"ngoconnect/internal/volunteer/store"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/audit"
	"ngoconnect/pkg/platform/sentinel"
	"ngoconnect/pkg/requestcontext"
)

// OpportunityStore is the slice of the campaign boundary the workflow needs.
type OpportunityStore interface {
	FindOpportunity(ctx context.Context, opportunityID id.OpportunityID) (*campaign.Opportunity, error)
	AppendApplicant(ctx context.Context, opportunityID id.OpportunityID, userID id.UserID) error
	RemoveApplicant(ctx context.Context, opportunityID id.OpportunityID, userID id.UserID) error
}

type Service struct {
	applications  store.Store
	opportunities OpportunityStore
	gate          *approval.Gate
	auditor       audit.Emitter
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func New(
	applications store.Store,
	opportunities OpportunityStore,
	gate *approval.Gate,
	auditor audit.Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		applications:  applications,
		opportunities: opportunities,
		gate:          gate,
		auditor:       auditor,
		metrics:       m,
		logger:        logger,
	}
}

// ApplyInput carries an applicant's request to join an opportunity. The
// contact and preference fields are snapshotted onto the application.
type ApplyInput struct {
	ApplicantID   id.UserID
	OpportunityID id.OpportunityID

	FullName          string
	Email             string
	Phone             string
	PreferredActivity string
	Availability      string
	Motivation        string
}

// Apply creates an application in applied state, suggesting an initial task
// from the opportunity's skill list. Rejects a second live application by the
// same applicant and opportunities whose spots are exhausted.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*volunteer.Application, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full name is required")
	}

	o, err := s.opportunities.FindOpportunity(ctx, in.OpportunityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "opportunity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load opportunity")
	}

	if _, err := s.applications.FindActiveByApplicantAndOpportunity(ctx, in.ApplicantID, in.OpportunityID); err == nil {
		return nil, dErrors.New(dErrors.CodeAlreadyApplied, "an active application for this opportunity already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing application")
	}

	if o.Spots > 0 {
		active, err := s.applications.CountActiveByOpportunity(ctx, in.OpportunityID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count applications")
		}
		if active >= o.Spots {
			return nil, dErrors.New(dErrors.CodeOpportunityFull, "no spots left on this opportunity")
		}
	}

	now := requestcontext.Now(ctx)
	a := &volunteer.Application{
		ID:                id.ApplicationID(uuid.New()),
		OpportunityID:     o.ID,
		ApplicantID:       in.ApplicantID,
		NGOID:             o.NGOID,
		FullName:          strings.TrimSpace(in.FullName),
		Email:             strings.TrimSpace(in.Email),
		Phone:             strings.TrimSpace(in.Phone),
		PreferredActivity: strings.TrimSpace(in.PreferredActivity),
		Availability:      strings.TrimSpace(in.Availability),
		Motivation:        strings.TrimSpace(in.Motivation),
		OpportunityTitle:  o.Title,
		NGOName:           o.NGOName,
		Status:            volunteer.StatusApplied,
		AssignedTask:      volunteer.SuggestTask(in.PreferredActivity, o.Skills),
		Approval:          id.NewApprovalState(),
		CreatedAt:         now,
	}
	if err := s.applications.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeAlreadyApplied, "an active application for this opportunity already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create application")
	}

	if err := s.opportunities.AppendApplicant(ctx, o.ID, in.ApplicantID); err != nil {
		s.logger.WarnContext(ctx, "append opportunity applicant failed",
			"application_id", a.ID, "opportunity_id", o.ID, "error", err)
	}

	s.metrics.IncrementTransition(string(volunteer.StatusApplied))
	s.audit(ctx, audit.EventVolunteerApplied, a, "")
	s.logger.InfoContext(ctx, "volunteer applied",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", a.ID,
		"opportunity_id", a.OpportunityID,
		"suggested_task", a.AssignedTask,
	)
	return a, nil
}

// Assign lets the organisation set the task and move the application from
// applied to assigned.
func (s *Service) Assign(ctx context.Context, applicationID id.ApplicationID, reviewer id.NGOID, task string) (*volunteer.Application, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "task is required")
	}

	a, err := s.execute(ctx, applicationID,
		func(a *volunteer.Application) error {
			if a.NGOID != reviewer {
				return dErrors.New(dErrors.CodeForbidden, "application belongs to another organisation")
			}
			if a.Status != volunteer.StatusApplied && a.Status != volunteer.StatusAssigned {
				return dErrors.New(dErrors.CodeConflict,
					fmt.Sprintf("cannot assign a task to a %s application", a.Status))
			}
			return nil
		},
		func(a *volunteer.Application) { a.ApplyAssignment(task) },
	)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(volunteer.StatusAssigned))
	s.audit(ctx, audit.EventVolunteerAssigned, a, "")
	s.logger.InfoContext(ctx, "volunteer assigned",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", a.ID,
		"task", task,
	)
	return a, nil
}

// Withdraw is the applicant's escape hatch from applied/assigned. Terminal:
// a withdrawn application cannot be reopened, only replaced by a new Apply.
func (s *Service) Withdraw(ctx context.Context, applicationID id.ApplicationID, caller id.UserID) (*volunteer.Application, error) {
	a, err := s.execute(ctx, applicationID,
		func(a *volunteer.Application) error {
			if a.ApplicantID != caller {
				return dErrors.New(dErrors.CodeForbidden, "application belongs to another volunteer")
			}
			if !a.Status.Active() {
				return dErrors.New(dErrors.CodeConflict,
					fmt.Sprintf("cannot withdraw a %s application", a.Status))
			}
			return nil
		},
		func(a *volunteer.Application) { a.ApplyWithdrawal() },
	)
	if err != nil {
		return nil, err
	}

	if err := s.opportunities.RemoveApplicant(ctx, a.OpportunityID, a.ApplicantID); err != nil {
		s.logger.WarnContext(ctx, "remove opportunity applicant failed",
			"application_id", a.ID, "opportunity_id", a.OpportunityID, "error", err)
	}

	s.metrics.IncrementTransition(string(volunteer.StatusWithdrawn))
	s.audit(ctx, audit.EventVolunteerWithdrawn, a, "")
	s.logger.InfoContext(ctx, "volunteer withdrawn",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", a.ID,
	)
	return a, nil
}

// Complete finalizes the engagement, records hours (zero when omitted), and
// requests certificate approval. Permitted from applied or assigned.
func (s *Service) Complete(ctx context.Context, applicationID id.ApplicationID, caller id.UserID, hours float64) (*volunteer.Application, error) {
	if hours < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "hours must not be negative")
	}

	now := requestcontext.Now(ctx)
	a, err := s.execute(ctx, applicationID,
		func(a *volunteer.Application) error {
			if a.ApplicantID != caller {
				return dErrors.New(dErrors.CodeForbidden, "application belongs to another volunteer")
			}
			if !a.Status.Active() {
				return dErrors.New(dErrors.CodeConflict,
					fmt.Sprintf("cannot complete a %s application", a.Status))
			}
			return nil
		},
		func(a *volunteer.Application) { a.ApplyCompletion(now, hours) },
	)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(volunteer.StatusCompleted))
	s.metrics.ObserveCompletedHours(a.ActivityHours)
	s.audit(ctx, audit.EventVolunteerCompleted, a, "")
	s.logger.InfoContext(ctx, "volunteer completed",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", a.ID,
		"hours", a.ActivityHours,
	)
	return a, nil
}

// ListMine returns the applicant's history newest first, withdrawn excluded.
func (s *Service) ListMine(ctx context.Context, applicantID id.UserID) ([]*volunteer.Application, error) {
	applications, err := s.applications.ListByApplicant(ctx, applicantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list applications")
	}
	return applications, nil
}

// ListPendingApprovals returns the NGO's queue of completed applications
// awaiting a certificate decision, oldest first.
func (s *Service) ListPendingApprovals(ctx context.Context, ngoID id.NGOID) ([]*volunteer.Application, error) {
	applications, err := s.applications.ListPendingApproval(ctx, ngoID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending approvals")
	}
	return applications, nil
}

// RequestSummary aggregates an NGO's application roster by status.
type RequestSummary struct {
	Total               int     `json:"total"`
	Applied             int     `json:"applied"`
	Assigned            int     `json:"assigned"`
	Completed           int     `json:"completed"`
	Withdrawn           int     `json:"withdrawn"`
	TotalHours          float64 `json:"total_hours"`
	PendingCertificates int     `json:"pending_certificates"`
}

// ListNGORequests returns the NGO's application roster with summary counts.
func (s *Service) ListNGORequests(ctx context.Context, ngoID id.NGOID) (*RequestSummary, []*volunteer.Application, error) {
	applications, err := s.applications.ListByNGO(ctx, ngoID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "list requests")
	}

	summary := &RequestSummary{Total: len(applications)}
	for _, a := range applications {
		switch a.Status {
		case volunteer.StatusApplied:
			summary.Applied++
		case volunteer.StatusAssigned:
			summary.Assigned++
		case volunteer.StatusCompleted:
			summary.Completed++
			summary.TotalHours += a.ActivityHours
		case volunteer.StatusWithdrawn:
			summary.Withdrawn++
		}
		if a.Approval.Status == id.ApprovalPending {
			summary.PendingCertificates++
		}
	}
	return summary, applications, nil
}

// DecideCertificate routes the NGO's approve/reject through the approval
// gate, scoped to this application.
func (s *Service) DecideCertificate(ctx context.Context, applicationID id.ApplicationID, req approval.Request) (*approval.Outcome, error) {
	exec := func(ctx context.Context, validate func(approval.Approvable) error, mutate func(approval.Approvable)) (approval.Approvable, error) {
		a, err := s.applications.Execute(ctx, applicationID,
			func(a *volunteer.Application) error {
				if a.Status != volunteer.StatusCompleted {
					return dErrors.New(dErrors.CodeInvalidApprovalState,
						fmt.Sprintf("certificates apply only to completed applications, not %q", a.Status))
				}
				return validate(a)
			},
			func(a *volunteer.Application) { mutate(a) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return nil, err
		}
		return a, nil
	}
	return s.gate.Decide(ctx, exec, req)
}

func (s *Service) execute(ctx context.Context, applicationID id.ApplicationID,
	validate func(*volunteer.Application) error,
	mutate func(*volunteer.Application)) (*volunteer.Application, error) {
	a, err := s.applications.Execute(ctx, applicationID, validate, mutate)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) audit(ctx context.Context, action audit.AuditEvent, a *volunteer.Application, reason string) {
	err := s.auditor.Emit(ctx, audit.Event{
		UserID:  a.ApplicantID,
		NGOID:   a.NGOID,
		Subject: "application/" + a.ID.String(),
		Action:  string(action),
		Reason:  reason,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "emit audit event failed", "action", action, "error", err)
	}
}
