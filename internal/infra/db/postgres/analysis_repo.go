package postgres

import (
	"context"
	"database/sql"

	domain "github.com/bryanwahyu/orderflow-ai/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// GetByInteraction returns the audit log of the interaction's extraction
// attempt, if one was reached.
func (r *AnalysisRepository) GetByInteraction(ctx context.Context, interactionID string) (*domain.Log, error) {
	const q = `
SELECT id, interaction_id, transcript_text, raw_extraction_json, confidence_score, created_at
FROM analysis_logs
WHERE interaction_id=$1
ORDER BY created_at DESC
LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, interactionID)

	var l domain.Log
	if err := row.Scan(&l.ID, &l.InteractionID, &l.TranscriptText, &l.RawExtractionJSON, &l.ConfidenceScore, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
