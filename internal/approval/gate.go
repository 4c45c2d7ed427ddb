package approval

import (
	"context"
	"fmt"
	"log/slog"

	"ngoconnect/internal/certificate"
	id "ngoconnect/pkg/domain"
	dErrors "ngoconnect/pkg/domain-errors"
	"ngoconnect/pkg/platform/audit"
	"ngoconnect/pkg/requestcontext"
)

// Approvable is the view of a workflow record the gate reviews. Donation and
// volunteer records both satisfy it; the gate never learns which one it has.
type Approvable interface {
	// ApprovalState returns the mutable approval state of the record.
	ApprovalState() *id.ApprovalState
	// CertificateSpec describes the certificate to mint on approval. Its
	// NGOID is also the only party allowed to decide.
	CertificateSpec() certificate.Spec
}

// Executor runs validate and then mutate atomically against the underlying
// record and returns the stored result. Each workflow store contributes its
// own executor, so the gate inherits whatever locking that store does.
type Executor func(ctx context.Context, validate func(Approvable) error, mutate func(Approvable)) (Approvable, error)

// Issuer mints certificates. Satisfied by certificate.Issuer.
type Issuer interface {
	Issue(ctx context.Context, spec certificate.Spec) (*certificate.Certificate, error)
}

// Request carries an NGO reviewer's decision.
type Request struct {
	Decision id.Decision
	Note     string
	Reviewer id.NGOID
}

// Outcome is the result of a decision. Certificate is set only when the
// decision was an approval.
type Outcome struct {
	Record      Approvable
	Certificate *certificate.Certificate
}

// Gate applies approve/reject decisions to pending records and issues
// certificates for approvals.
type Gate struct {
	issuer  Issuer
	auditor audit.Emitter
	logger  *slog.Logger
}

func NewGate(issuer Issuer, auditor audit.Emitter, logger *slog.Logger) *Gate {
	return &Gate{issuer: issuer, auditor: auditor, logger: logger}
}

// Decide reviews the record behind exec.
//
// Approve moves a pending record to approved and issues its certificate.
// Approving an already-approved record is idempotent and returns the
// certificate that exists; this also lets a caller retry when issuance failed
// after the approval was stored. Reject is terminal and only valid from
// pending. Any other starting state is refused.
func (g *Gate) Decide(ctx context.Context, exec Executor, req Request) (*Outcome, error) {
	now := requestcontext.Now(ctx)

	var alreadyApproved bool
	record, err := exec(ctx, func(a Approvable) error {
		alreadyApproved = false
		if a.CertificateSpec().NGOID != req.Reviewer {
			return dErrors.New(dErrors.CodeForbidden, "record belongs to another organisation")
		}
		state := a.ApprovalState()
		switch req.Decision {
		case id.DecisionApprove:
			switch state.Status {
			case id.ApprovalPending:
				return nil
			case id.ApprovalApproved:
				alreadyApproved = true
				return nil
			default:
				return dErrors.New(dErrors.CodeInvalidApprovalState,
					fmt.Sprintf("cannot approve a record in state %q", state.Status))
			}
		case id.DecisionReject:
			if state.Status != id.ApprovalPending {
				return dErrors.New(dErrors.CodeInvalidApprovalState,
					fmt.Sprintf("cannot reject a record in state %q", state.Status))
			}
			return nil
		default:
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown decision %q", req.Decision))
		}
	}, func(a Approvable) {
		state := a.ApprovalState()
		if state.Status != id.ApprovalPending {
			return
		}
		if req.Decision == id.DecisionApprove {
			state.Status = id.ApprovalApproved
		} else {
			state.Status = id.ApprovalRejected
		}
		state.ReviewedAt = &now
		state.ReviewedBy = req.Reviewer
		state.Note = req.Note
	})
	if err != nil {
		return nil, err
	}

	spec := record.CertificateSpec()

	if req.Decision == id.DecisionReject {
		g.audit(ctx, audit.EventCertificateRejected, spec, req)
		return &Outcome{Record: record}, nil
	}

	cert, err := g.issuer.Issue(ctx, spec)
	if err != nil {
		g.logger.ErrorContext(ctx, "certificate issuance failed after approval",
			"request_id", requestcontext.RequestID(ctx),
			"entity", spec.Entity.Key(),
			"error", err,
		)
		return nil, err
	}

	if !alreadyApproved {
		g.audit(ctx, audit.EventCertificateApproved, spec, req)
		g.audit(ctx, audit.EventCertificateIssued, spec, req)
	}
	return &Outcome{Record: record, Certificate: cert}, nil
}

func (g *Gate) audit(ctx context.Context, action audit.AuditEvent, spec certificate.Spec, req Request) {
	err := g.auditor.Emit(ctx, audit.Event{
		UserID:   spec.BeneficiaryID,
		NGOID:    spec.NGOID,
		Subject:  spec.Entity.Key(),
		Action:   string(action),
		Decision: string(req.Decision),
		Reason:   req.Note,
		ActorID:  req.Reviewer.String(),
	})
	if err != nil {
		g.logger.WarnContext(ctx, "emit audit event failed", "action", action, "error", err)
	}
}
