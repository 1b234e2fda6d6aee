// Package repositories provides the PostgreSQL-backed analysis history.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	appErrors "github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const summaryColumns = "id::text, contract_type, overall_risk, risk_score, red_flags, answered, categories, enhanced, analyzed_at"

// AnalysisRepository indexes finished analyses for listing and retrieval.
// The full analysis is kept as JSONB next to the filterable summary columns.
type AnalysisRepository struct {
	db     querier
	logger Logger
}

// NewAnalysisRepository constructs the repository over a pool.
func NewAnalysisRepository(db querier, logger Logger) *AnalysisRepository {
	if logger == nil {
		logger = nopLogger{}
	}
	return &AnalysisRepository{db: db, logger: logger}
}

// Record upserts a.
func (r *AnalysisRepository) Record(ctx context.Context, a *contract.ContractAnalysis) error {
	r.logger.Debug("AnalysisRepository.Record", "analysis_id", a.ID)

	payload, err := json.Marshal(a)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode analysis")
	}
	s := contract.Summarize(a)
	_, err = r.db.Exec(ctx, `
		INSERT INTO contract_analyses (
			id, contract_type, overall_risk, risk_score, red_flags,
			answered, categories, enhanced, payload, analyzed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			contract_type = EXCLUDED.contract_type,
			overall_risk  = EXCLUDED.overall_risk,
			risk_score    = EXCLUDED.risk_score,
			red_flags     = EXCLUDED.red_flags,
			answered      = EXCLUDED.answered,
			categories    = EXCLUDED.categories,
			enhanced      = EXCLUDED.enhanced,
			payload       = EXCLUDED.payload,
			analyzed_at   = EXCLUDED.analyzed_at`,
		s.ID, string(s.ContractType), string(s.OverallRisk), s.RiskScore, s.RedFlags,
		s.Answered, s.Categories, s.Enhanced, payload, s.Timestamp,
	)
	if err != nil {
		r.logger.Error("AnalysisRepository.Record: insert", "error", err, "analysis_id", a.ID)
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to record analysis")
	}
	return nil
}

// Get loads the full analysis by ID.
func (r *AnalysisRepository) Get(ctx context.Context, id string) (*contract.ContractAnalysis, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `SELECT payload FROM contract_analyses WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appErrors.NotFound("analysis not found").WithDetail("id=" + id)
		}
		r.logger.Error("AnalysisRepository.Get", "error", err, "analysis_id", id)
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to load analysis")
	}
	var a contract.ContractAnalysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to decode analysis")
	}
	return &a, nil
}

// List returns one page of summaries, newest first, and the total number of
// matching rows.
func (r *AnalysisRepository) List(ctx context.Context, f contract.AnalysisFilter) ([]contract.AnalysisSummary, int64, error) {
	if err := f.Normalize(); err != nil {
		return nil, 0, err
	}
	where, args := buildFilter(f)

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM contract_analyses"+where, args...).Scan(&total); err != nil {
		r.logger.Error("AnalysisRepository.List: count", "error", err)
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to count analyses")
	}
	if total == 0 {
		return []contract.AnalysisSummary{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM contract_analyses%s ORDER BY analyzed_at DESC, id LIMIT $%d OFFSET $%d",
		summaryColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		r.logger.Error("AnalysisRepository.List: query", "error", err)
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list analyses")
	}
	defer rows.Close()

	out := make([]contract.AnalysisSummary, 0, f.Limit)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan analysis row")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate analyses")
	}
	return out, total, nil
}

// Delete removes an analysis. A missing row is NotFound.
func (r *AnalysisRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contract_analyses WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("AnalysisRepository.Delete", "error", err, "analysis_id", id)
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to delete analysis")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.NotFound("analysis not found").WithDetail("id=" + id)
	}
	return nil
}

// buildFilter renders the WHERE clause (with a leading space) and its
// positional arguments.
func buildFilter(f contract.AnalysisFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	nextArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ContractType != "" {
		conditions = append(conditions, "contract_type = "+nextArg(string(f.ContractType)))
	}
	if f.Risk != "" {
		conditions = append(conditions, "overall_risk = "+nextArg(string(f.Risk)))
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, "analyzed_at >= "+nextArg(f.Since))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanSummary(row pgx.Row) (contract.AnalysisSummary, error) {
	var (
		s     contract.AnalysisSummary
		ctype string
		risk  string
	)
	err := row.Scan(&s.ID, &ctype, &risk, &s.RiskScore, &s.RedFlags, &s.Answered, &s.Categories, &s.Enhanced, &s.Timestamp)
	s.ContractType = contract.ContractType(ctype)
	s.OverallRisk = contract.RiskLevel(risk)
	return s, err
}

//Personal.AI order the ending
