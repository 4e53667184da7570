// Package policy decides whether a send may go ahead under the service's
// limits.
package policy

import (
	"context"
	"fmt"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/common/metrics"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/recipients"
)

type Mode string

const (
	ModeBulk   Mode = "bulk"
	ModeOneOff Mode = "one_off"
)

type Kind string

const (
	Allow                    Kind = "allow"
	BlockChannelDisabled     Kind = "channel_disabled"
	BlockLetterInTrial       Kind = "letter_in_trial"
	BlockTrialLimit          Kind = "trial_limit"
	BlockOverAllowance       Kind = "over_allowance"
	BlockDuplicateSubmission Kind = "duplicate_submission"
)

// Allowance says which limit an over-allowance block hit.
type Allowance string

const (
	AllowanceRowCap Allowance = "cap"
	AllowanceDaily  Allowance = "daily"
)

// Decision is the outcome of Evaluate. Allowance, Limit and FileName are
// set for the block kinds they describe.
type Decision struct {
	Kind      Kind
	Allowance Allowance
	Limit     int
	FileName  string
}

func (d Decision) Allowed() bool { return d.Kind == Allow }

func (d Decision) String() string {
	if d.Allowance != "" {
		return fmt.Sprintf("%s(%s)", d.Kind, d.Allowance)
	}
	return string(d.Kind)
}

// Err converts a block into the error shown to the user.
func (d Decision) Err() error {
	switch d.Kind {
	case Allow:
		return nil
	case BlockDuplicateSubmission:
		return apperrors.NewDuplicateSubmissionError(d.FileName)
	}
	return apperrors.NewBatchPolicyViolationError(d.String())
}

// PreviousSends answers whether a file was sent before. The backend client
// implements it.
type PreviousSends interface {
	HasSentPreviously(ctx context.Context, serviceID, templateID string, version int, fileName string) (bool, error)
}

// Input is everything one evaluation looks at. Recipients and FileName are
// only read in bulk mode.
type Input struct {
	Template   *models.Template
	Policy     *models.ServicePolicy
	Mode       Mode
	Recipients *recipients.View
	FileName   string
	SenderID   string
}

type Evaluator struct {
	previous PreviousSends
	logger   logger.Logger
}

func NewEvaluator(previous PreviousSends, log logger.Logger) *Evaluator {
	return &Evaluator{previous: previous, logger: logger.ForComponent(log, "policy")}
}

// Evaluate applies the rules in order and returns the first block, or Allow.
// An error is only returned when the previously-sent lookup fails.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (Decision, error) {
	d, err := e.evaluate(ctx, in)
	if err != nil {
		return Decision{}, err
	}
	metrics.PolicyDecisions.WithLabelValues(string(d.Kind), string(in.Mode)).Inc()
	if !d.Allowed() {
		e.logger.Info("Send blocked by policy", map[string]interface{}{
			"serviceId":  in.Policy.ServiceID,
			"templateId": in.Template.ID,
			"mode":       string(in.Mode),
			"decision":   d.String(),
		})
	}
	return d, nil
}

func (e *Evaluator) evaluate(ctx context.Context, in Input) (Decision, error) {
	t, p := in.Template, in.Policy

	if !p.CanSend(t.Type) {
		return Decision{Kind: BlockChannelDisabled}, nil
	}
	if t.Type == models.TemplateTypeLetter && p.InTrialMode {
		return Decision{Kind: BlockLetterInTrial}, nil
	}
	if in.Mode != ModeBulk || in.Recipients == nil {
		return Decision{Kind: Allow}, nil
	}

	view := in.Recipients
	if p.InTrialMode && view.RowsNotInSafelist() > 0 {
		return Decision{Kind: BlockTrialLimit}, nil
	}
	if view.TooManyRows() {
		return Decision{Kind: BlockOverAllowance, Allowance: AllowanceRowCap, Limit: p.MaxRows}, nil
	}
	if view.CountOfRecipients()+p.MessagesSentToday > p.MessageLimitToday {
		return Decision{Kind: BlockOverAllowance, Allowance: AllowanceDaily, Limit: p.MessageLimitToday}, nil
	}

	if e.previous != nil && in.FileName != "" {
		sent, err := e.previous.HasSentPreviously(ctx, p.ServiceID, t.ID, t.Version, in.FileName)
		if err != nil {
			return Decision{}, fmt.Errorf("check previous sends: %w", err)
		}
		if sent {
			return Decision{Kind: BlockDuplicateSubmission, FileName: in.FileName}, nil
		}
	}
	return Decision{Kind: Allow}, nil
}
