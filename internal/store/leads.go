package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/agenthands/leadblitz/internal/core/model"
)

const leadColumns = `id, user_id, campaign_id, name, contact_name, address, phone, website, email,
	score, score_reasoning, stage, notes, rating, review_count, email_source, email_confidence,
	email_candidates, heuristic_score, ai_score, score_confidence, last_scored_at, technographics,
	source, import_id, import_status, created_at, updated_at`

const leadsInsert = `INSERT INTO leads (` + leadColumns + `) VALUES (
	:id, :user_id, :campaign_id, :name, :contact_name, :address, :phone, :website, :email,
	:score, :score_reasoning, :stage, :notes, :rating, :review_count, :email_source, :email_confidence,
	:email_candidates, :heuristic_score, :ai_score, :score_confidence, :last_scored_at, :technographics,
	:source, :import_id, :import_status, :created_at, :updated_at)`

const leadsUpdate = `UPDATE leads SET
	campaign_id=:campaign_id, name=:name, contact_name=:contact_name, address=:address, phone=:phone,
	website=:website, email=:email, score=:score, score_reasoning=:score_reasoning, stage=:stage,
	notes=:notes, rating=:rating, review_count=:review_count, email_source=:email_source,
	email_confidence=:email_confidence, email_candidates=:email_candidates,
	heuristic_score=:heuristic_score, ai_score=:ai_score, score_confidence=:score_confidence,
	last_scored_at=:last_scored_at, technographics=:technographics, source=:source,
	import_id=:import_id, import_status=:import_status, updated_at=:updated_at
	WHERE id=:id AND user_id=:user_id`

const leadsScoreUpdate = `UPDATE leads SET
	score=:score, score_reasoning=:score_reasoning, heuristic_score=:heuristic_score,
	ai_score=:ai_score, score_confidence=:score_confidence, last_scored_at=:last_scored_at,
	technographics=:technographics, import_status=:import_status, updated_at=:updated_at
	WHERE id=:id AND user_id=:user_id`

const leadsContactUpdate = `UPDATE leads SET
	phone = CASE WHEN phone = '' THEN :phone ELSE phone END,
	email_source = CASE WHEN email = '' THEN :email_source ELSE email_source END,
	email_confidence = CASE WHEN email = '' THEN :email_confidence ELSE email_confidence END,
	email_candidates = CASE WHEN email = '' THEN :email_candidates ELSE email_candidates END,
	email = CASE WHEN email = '' THEN :email ELSE email END,
	updated_at = :updated_at
	WHERE id=:id AND user_id=:user_id`

type leadRow struct {
	ID              string  `db:"id"`
	UserID          string  `db:"user_id"`
	CampaignID      string  `db:"campaign_id"`
	Name            string  `db:"name"`
	ContactName     string  `db:"contact_name"`
	Address         string  `db:"address"`
	Phone           string  `db:"phone"`
	Website         string  `db:"website"`
	Email           string  `db:"email"`
	Score           int     `db:"score"`
	ScoreReasoning  string  `db:"score_reasoning"`
	Stage           string  `db:"stage"`
	Notes           string  `db:"notes"`
	Rating          float64 `db:"rating"`
	ReviewCount     int     `db:"review_count"`
	EmailSource     string  `db:"email_source"`
	EmailConfidence float64 `db:"email_confidence"`
	EmailCandidates string  `db:"email_candidates"`
	HeuristicScore  int     `db:"heuristic_score"`
	AIScore         int     `db:"ai_score"`
	ScoreConfidence float64 `db:"score_confidence"`
	LastScoredAt    int64   `db:"last_scored_at"`
	Technographics  string  `db:"technographics"`
	Source          string  `db:"source"`
	ImportID        string  `db:"import_id"`
	ImportStatus    string  `db:"import_status"`
	CreatedAt       int64   `db:"created_at"`
	UpdatedAt       int64   `db:"updated_at"`
}

func marshalOptional(v interface{}, isNil bool) (string, error) {
	if isNil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newLeadRow(l *model.Lead) (*leadRow, error) {
	reasoning, err := marshalOptional(l.ScoreReasoning, l.ScoreReasoning == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score reasoning: %w", err)
	}
	tech, err := marshalOptional(l.Technographics, l.Technographics == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode technographics: %w", err)
	}
	candidates, err := marshalOptional(l.EmailCandidates, len(l.EmailCandidates) == 0)
	if err != nil {
		return nil, fmt.Errorf("failed to encode email candidates: %w", err)
	}
	stage := l.Stage
	if stage == "" {
		stage = model.StageNew
	}
	return &leadRow{
		ID:              l.ID,
		UserID:          l.UserID,
		CampaignID:      l.CampaignID,
		Name:            l.Name,
		ContactName:     l.ContactName,
		Address:         l.Address,
		Phone:           l.Phone,
		Website:         l.Website,
		Email:           l.Email,
		Score:           l.Score,
		ScoreReasoning:  reasoning,
		Stage:           string(stage),
		Notes:           l.Notes,
		Rating:          l.Rating,
		ReviewCount:     l.ReviewCount,
		EmailSource:     l.EmailSource,
		EmailConfidence: l.EmailConfidence,
		EmailCandidates: candidates,
		HeuristicScore:  l.HeuristicScore,
		AIScore:         l.AIScore,
		ScoreConfidence: l.ScoreConfidence,
		LastScoredAt:    unixPtr(l.LastScoredAt),
		Technographics:  tech,
		Source:          l.Source,
		ImportID:        l.ImportID,
		ImportStatus:    l.ImportStatus,
		CreatedAt:       unix(l.CreatedAt),
		UpdatedAt:       unix(l.UpdatedAt),
	}, nil
}

func (r *leadRow) toModel() *model.Lead {
	l := &model.Lead{
		ID:              r.ID,
		UserID:          r.UserID,
		CampaignID:      r.CampaignID,
		Name:            r.Name,
		ContactName:     r.ContactName,
		Address:         r.Address,
		Phone:           r.Phone,
		Website:         r.Website,
		Email:           r.Email,
		Score:           r.Score,
		Stage:           model.Stage(r.Stage),
		Notes:           r.Notes,
		Rating:          r.Rating,
		ReviewCount:     r.ReviewCount,
		EmailSource:     r.EmailSource,
		EmailConfidence: r.EmailConfidence,
		HeuristicScore:  r.HeuristicScore,
		AIScore:         r.AIScore,
		ScoreConfidence: r.ScoreConfidence,
		LastScoredAt:    fromUnixPtr(r.LastScoredAt),
		Source:          r.Source,
		ImportID:        r.ImportID,
		ImportStatus:    r.ImportStatus,
		CreatedAt:       fromUnix(r.CreatedAt),
		UpdatedAt:       fromUnix(r.UpdatedAt),
	}
	// Corrupt JSON columns are dropped rather than failing the whole listing.
	if r.ScoreReasoning != "" {
		var sr model.ScoreReasoning
		if json.Unmarshal([]byte(r.ScoreReasoning), &sr) == nil {
			l.ScoreReasoning = &sr
		}
	}
	if r.Technographics != "" {
		var t model.Technographics
		if json.Unmarshal([]byte(r.Technographics), &t) == nil {
			l.Technographics = &t
		}
	}
	if r.EmailCandidates != "" {
		_ = json.Unmarshal([]byte(r.EmailCandidates), &l.EmailCandidates)
	}
	return l
}

func (s *Store) InsertLeads(ctx context.Context, leads []*model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, l := range leads {
			now := time.Now().UTC()
			if l.CreatedAt.IsZero() {
				l.CreatedAt = now
			}
			l.UpdatedAt = now
			row, err := newLeadRow(l)
			if err != nil {
				return err
			}
			if _, err := tx.NamedExecContext(ctx, leadsInsert, row); err != nil {
				return fmt.Errorf("failed to insert lead %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) GetLead(ctx context.Context, userID, id string) (*model.Lead, error) {
	var row leadRow
	q := s.db.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE id = ? AND user_id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// ListLeads returns the user's leads matching the filter, oldest first.
func (s *Store) ListLeads(ctx context.Context, f model.LeadFilter) ([]*model.Lead, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []interface{}{f.UserID}
	)
	if f.CampaignID != "" {
		where = append(where, "campaign_id = ?")
		args = append(args, f.CampaignID)
	}
	if f.ImportID != "" {
		where = append(where, "import_id = ?")
		args = append(args, f.ImportID)
	}
	if len(f.IDs) > 0 {
		where = append(where, "id IN (?)")
		args = append(args, f.IDs)
	}

	q, args, err := s.in(`SELECT `+leadColumns+` FROM leads WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}

	var rows []leadRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	leads := make([]*model.Lead, 0, len(rows))
	for i := range rows {
		leads = append(leads, rows[i].toModel())
	}
	return leads, nil
}

// UpdateLead persists every mutable column of l. Only user edits use it;
// background writers go through the narrower updates below.
func (s *Store) UpdateLead(ctx context.Context, l *model.Lead) error {
	return s.updateLead(ctx, leadsUpdate, l)
}

// UpdateLeadScore writes the scoring columns and import status of l.
func (s *Store) UpdateLeadScore(ctx context.Context, l *model.Lead) error {
	return s.updateLead(ctx, leadsScoreUpdate, l)
}

// UpdateLeadContact fills the phone and email columns of l that are still
// empty in the row. A value set in the meantime wins.
func (s *Store) UpdateLeadContact(ctx context.Context, l *model.Lead) error {
	return s.updateLead(ctx, leadsContactUpdate, l)
}

func (s *Store) updateLead(ctx context.Context, query string, l *model.Lead) error {
	l.UpdatedAt = time.Now().UTC()
	row, err := newLeadRow(l)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetLeadStage(ctx context.Context, userID, id string, stage model.Stage) error {
	q := s.db.Rebind(`UPDATE leads SET stage = ?, updated_at = ? WHERE id = ? AND user_id = ?`)
	res, err := s.db.ExecContext(ctx, q, string(stage), unix(time.Now().UTC()), id, userID)
	if err != nil {
		return fmt.Errorf("failed to set lead stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteLead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM leads WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LeadWebsites returns every website stored for the user.
func (s *Store) LeadWebsites(ctx context.Context, userID string) ([]string, error) {
	var sites []string
	q := s.db.Rebind(`SELECT website FROM leads WHERE user_id = ? AND website <> ''`)
	if err := s.db.SelectContext(ctx, &sites, q, userID); err != nil {
		return nil, fmt.Errorf("failed to list lead websites: %w", err)
	}
	return sites, nil
}
