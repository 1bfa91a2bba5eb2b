package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/common"
)

// LineageRecord is one evolution session's persisted state: the seed, the
// current head, and the full accepted history as JSONB.
type LineageRecord struct {
	ID                common.ID
	SeedSMILES        string
	CurrentSMILES     string
	GenerationIndex   uint
	MutationCount     uint
	DivergencePercent float64
	History           []chem.LineageEntryDTO
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LineageRepository persists evolution lineages.
type LineageRepository struct {
	db     DB
	logger logging.Logger
}

// NewLineageRepository constructs a ready-to-use LineageRepository.
func NewLineageRepository(db DB, logger logging.Logger) *LineageRepository {
	return &LineageRepository{db: db, logger: logger.Named("lineage_repo")}
}

// Save upserts the lineage state; accepted generations overwrite the head
// and extend the stored history.
func (r *LineageRepository) Save(ctx context.Context, rec *LineageRecord) error {
	if rec.ID.IsZero() {
		rec.ID = common.NewID()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	histJSON, err := json.Marshal(rec.History)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal history")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO lineages (
			id, seed_smiles, current_smiles, generation_index,
			mutation_count, divergence_percent, history,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			current_smiles = EXCLUDED.current_smiles,
			generation_index = EXCLUDED.generation_index,
			mutation_count = EXCLUDED.mutation_count,
			divergence_percent = EXCLUDED.divergence_percent,
			history = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.SeedSMILES, rec.CurrentSMILES, rec.GenerationIndex,
		rec.MutationCount, rec.DivergencePercent, histJSON,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("save failed", logging.Err(err),
			logging.String("lineage_id", string(rec.ID)))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to save lineage")
	}
	return nil
}

// Get fetches a lineage by ID.
func (r *LineageRepository) Get(ctx context.Context, id common.ID) (*LineageRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, seed_smiles, current_smiles, generation_index,
		       mutation_count, divergence_percent, history,
		       created_at, updated_at
		FROM lineages WHERE id = $1`, id)
	return scanLineage(row, id)
}

// List returns lineages ordered by most recently updated.
func (r *LineageRepository) List(ctx context.Context, p common.Pagination) ([]*LineageRecord, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, seed_smiles, current_smiles, generation_index,
		       mutation_count, divergence_percent, history,
		       created_at, updated_at
		FROM lineages
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`,
		p.PageSize, (p.Page-1)*p.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list lineages")
	}
	defer rows.Close()

	var out []*LineageRecord
	for rows.Next() {
		rec, err := scanLineage(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "row iteration failed")
	}
	return out, nil
}

func scanLineage(row pgx.Row, id common.ID) (*LineageRecord, error) {
	rec := &LineageRecord{}
	var histJSON []byte
	err := row.Scan(&rec.ID, &rec.SeedSMILES, &rec.CurrentSMILES,
		&rec.GenerationIndex, &rec.MutationCount, &rec.DivergencePercent,
		&histJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeLineageNotFound, "lineage not found").
			WithDetail(string(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan lineage")
	}
	if err := json.Unmarshal(histJSON, &rec.History); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "unmarshal history")
	}
	return rec, nil
}
