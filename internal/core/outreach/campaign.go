package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
)

// Store is the persistence a campaign needs. *store.Store implements it.
type Store interface {
	SetLeadStage(ctx context.Context, userID, id string, stage model.Stage) error
	IncrementSent(ctx context.Context, userID string, emails, sms int) error
}

// Charger prices and debits sends.
type Charger interface {
	Has(ctx context.Context, userID string, op credits.Operation, count int) (bool, int, error)
	Deduct(ctx context.Context, userID string, op credits.Operation, count int) (int, error)
}

// Selection narrows the leads a batch goes to. A non-empty LeadIDs wins over
// the score and stage filters.
type Selection struct {
	LeadIDs         []string
	OnlyScoredAbove *int
	StageFilter     string
}

// Batch is one send request. Signature is appended to email bodies only.
type Batch struct {
	UserID             string
	Channel            Channel
	Subject            string
	Body               string
	IncludeScoreReport bool
	Signature          string
	Selection          Selection
}

// Failure is one lead that could not be contacted.
type Failure struct {
	LeadID   string `json:"lead_id"`
	LeadName string `json:"lead_name"`
	Reason   string `json:"reason"`
}

type Outcome struct {
	Sent        int       `json:"sent"`
	Skipped     int       `json:"skipped"`
	Errors      []Failure `json:"errors"`
	CreditsUsed int       `json:"credits_used"`
}

// Eligible filters leads for ch. Email needs an address with "@", SMS
// needs a phone. skipped counts the candidates that were dropped: the
// requested ids when LeadIDs is set, otherwise every lead.
func Eligible(leads []*model.Lead, ch Channel, sel Selection) (eligible []*model.Lead, skipped int) {
	wanted := map[string]bool{}
	for _, id := range sel.LeadIDs {
		wanted[id] = true
	}
	for _, l := range leads {
		if !reachable(l, ch) {
			continue
		}
		if len(wanted) > 0 {
			if !wanted[l.ID] {
				continue
			}
		} else {
			if sel.OnlyScoredAbove != nil && l.Score < *sel.OnlyScoredAbove {
				continue
			}
			if sel.StageFilter != "" && string(l.Stage) != sel.StageFilter {
				continue
			}
		}
		eligible = append(eligible, l)
	}
	candidates := len(leads)
	if len(wanted) > 0 {
		candidates = len(sel.LeadIDs)
	}
	return eligible, max(candidates-len(eligible), 0)
}

func reachable(l *model.Lead, ch Channel) bool {
	if ch == ChannelSMS {
		return strings.TrimSpace(l.Phone) != ""
	}
	return l.HasEmail()
}

func operation(ch Channel) credits.Operation {
	if ch == ChannelSMS {
		return credits.SMSSend
	}
	return credits.EmailSend
}

// Campaign delivers batches one lead at a time, waiting Delay between sends.
type Campaign struct {
	Store   Store
	Credits Charger
	Email   EmailSender
	SMS     SMSSender
	Delay   time.Duration
	Logger  *zap.Logger
}

func (c *Campaign) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Run sends b to leads. The whole batch is priced up front; a balance that
// cannot cover it fails with *credits.InsufficientError before anything is
// sent. Per-lead delivery failures are collected and never stop the batch.
// A failed debit records the lead and stops. Cancelling ctx stops between
// sends and returns what was done so far with an error.
func (c *Campaign) Run(ctx context.Context, b Batch, leads []*model.Lead) (*Outcome, error) {
	eligible, skipped := Eligible(leads, b.Channel, b.Selection)
	out := &Outcome{Skipped: skipped, Errors: []Failure{}}
	op := operation(b.Channel)

	ok, balance, err := c.Credits.Has(ctx, b.UserID, op, len(eligible))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &credits.InsufficientError{Op: op, Need: credits.Cost(op, len(eligible)), Have: balance}
	}
	if b.Channel == ChannelSMS && c.SMS == nil || b.Channel == ChannelEmail && c.Email == nil {
		return nil, fmt.Errorf("%s: %w", b.Channel, ErrNotConfigured)
	}

	log := c.logger().With(zap.String("user_id", b.UserID), zap.String("channel", string(b.Channel)))
	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(c.Delay), 1)
	}

	for _, l := range eligible {
		if err := limiter.Wait(ctx); err != nil {
			log.Warn("batch interrupted", zap.Int("sent", out.Sent), zap.Error(err))
			return out, fmt.Errorf("batch interrupted: %w", err)
		}
		if _, err := c.Credits.Deduct(ctx, b.UserID, op, 1); err != nil {
			out.Errors = append(out.Errors, Failure{LeadID: l.ID, LeadName: l.Name, Reason: "Insufficient credits"})
			log.Warn("batch stopped on credits", zap.Int("sent", out.Sent), zap.Error(err))
			break
		}
		out.CreditsUsed += credits.Cost(op, 1)

		if err := c.deliver(ctx, b, l); err != nil {
			out.Errors = append(out.Errors, Failure{LeadID: l.ID, LeadName: l.Name, Reason: reason(err)})
			log.Info("send failed", zap.String("lead_id", l.ID), zap.Error(err))
			continue
		}
		out.Sent++
		if err := c.markContacted(ctx, b, l); err != nil {
			log.Error("failed to record send", zap.String("lead_id", l.ID), zap.Error(err))
		}
	}
	log.Info("batch finished", zap.Int("sent", out.Sent), zap.Int("skipped", out.Skipped),
		zap.Int("failed", len(out.Errors)), zap.Int("credits_used", out.CreditsUsed))
	return out, nil
}

// SendOne delivers b to a single lead, debiting its cost first.
func (c *Campaign) SendOne(ctx context.Context, b Batch, l *model.Lead) (int, error) {
	if !reachable(l, b.Channel) {
		return 0, fmt.Errorf("lead has no %s contact: %w", b.Channel, ErrUnreachable)
	}
	if b.Channel == ChannelSMS && c.SMS == nil || b.Channel == ChannelEmail && c.Email == nil {
		return 0, fmt.Errorf("%s: %w", b.Channel, ErrNotConfigured)
	}
	op := operation(b.Channel)
	if _, err := c.Credits.Deduct(ctx, b.UserID, op, 1); err != nil {
		return 0, err
	}
	if err := c.deliver(ctx, b, l); err != nil {
		return credits.Cost(op, 1), err
	}
	if err := c.markContacted(ctx, b, l); err != nil {
		c.logger().Error("failed to record send", zap.String("lead_id", l.ID), zap.Error(err))
	}
	return credits.Cost(op, 1), nil
}

// ErrUnreachable is returned when a lead lacks the address a channel needs.
var ErrUnreachable = errors.New("lead unreachable")

func (c *Campaign) deliver(ctx context.Context, b Batch, l *model.Lead) error {
	vars := Variables(l, b.Channel)
	if b.Channel == ChannelSMS {
		return c.SMS.SendSMS(ctx, l.Phone, Render(b.Body, vars))
	}
	body := Render(b.Body, vars)
	if b.IncludeScoreReport {
		if report := ScoreReport(l); report != "" {
			body += "\n\n" + report
		}
	}
	if b.Signature != "" {
		body += "\n\n" + b.Signature
	}
	return c.Email.SendEmail(ctx, l.Email, Render(b.Subject, vars), body)
}

func (c *Campaign) markContacted(ctx context.Context, b Batch, l *model.Lead) error {
	l.Stage = model.StageContacted
	if err := c.Store.SetLeadStage(ctx, b.UserID, l.ID, l.Stage); err != nil {
		return err
	}
	if b.Channel == ChannelSMS {
		return c.Store.IncrementSent(ctx, b.UserID, 0, 1)
	}
	return c.Store.IncrementSent(ctx, b.UserID, 1, 0)
}

func reason(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return "Unexpected error: " + err.Error()
}
