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

// MoleculeRecord is one scored molecule as persisted.  Descriptors and the
// fitness report are stored as JSONB so the schema survives profile bumps.
type MoleculeRecord struct {
	ID              common.ID
	SMILES          string
	CanonicalSMILES string
	Descriptors     chem.Descriptors
	Fitness         chem.FitnessReport
	ProfileVersion  string
	CreatedAt       time.Time
}

// MoleculeRepository persists scored molecules keyed by canonical form.
type MoleculeRepository struct {
	db     DB
	logger logging.Logger
}

// NewMoleculeRepository constructs a ready-to-use MoleculeRepository.
func NewMoleculeRepository(db DB, logger logging.Logger) *MoleculeRepository {
	return &MoleculeRepository{db: db, logger: logger.Named("molecule_repo")}
}

// Save upserts a record; re-scoring the same canonical form refreshes the
// stored descriptors and fitness.
func (r *MoleculeRepository) Save(ctx context.Context, rec *MoleculeRecord) error {
	if rec.ID.IsZero() {
		rec.ID = common.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	descJSON, err := json.Marshal(rec.Descriptors)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal descriptors")
	}
	fitJSON, err := json.Marshal(rec.Fitness)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "marshal fitness")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO molecules (
			id, smiles, canonical_smiles, descriptors, fitness,
			profile_version, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (canonical_smiles) DO UPDATE SET
			descriptors = EXCLUDED.descriptors,
			fitness = EXCLUDED.fitness,
			profile_version = EXCLUDED.profile_version`,
		rec.ID, rec.SMILES, rec.CanonicalSMILES, descJSON, fitJSON,
		rec.ProfileVersion, rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("save failed", logging.Err(err),
			logging.String("canonical", rec.CanonicalSMILES))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to save molecule")
	}
	return nil
}

// GetByCanonical fetches the record for a canonical form.
func (r *MoleculeRepository) GetByCanonical(ctx context.Context, canonical string) (*MoleculeRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, smiles, canonical_smiles, descriptors, fitness,
		       profile_version, created_at
		FROM molecules WHERE canonical_smiles = $1`, canonical)
	return scanMolecule(row, canonical)
}

// List returns records ordered by descending composite fitness.
func (r *MoleculeRepository) List(ctx context.Context, p common.Pagination) ([]*MoleculeRecord, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, smiles, canonical_smiles, descriptors, fitness,
		       profile_version, created_at
		FROM molecules
		ORDER BY (fitness->>'composite_fitness')::float DESC, canonical_smiles
		LIMIT $1 OFFSET $2`,
		p.PageSize, (p.Page-1)*p.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list molecules")
	}
	defer rows.Close()

	var out []*MoleculeRecord
	for rows.Next() {
		rec, err := scanMolecule(rows, "")
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

func scanMolecule(row pgx.Row, canonical string) (*MoleculeRecord, error) {
	rec := &MoleculeRecord{}
	var descJSON, fitJSON []byte
	err := row.Scan(&rec.ID, &rec.SMILES, &rec.CanonicalSMILES,
		&descJSON, &fitJSON, &rec.ProfileVersion, &rec.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, "molecule not found").
			WithDetail(canonical)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan molecule")
	}
	if err := json.Unmarshal(descJSON, &rec.Descriptors); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "unmarshal descriptors")
	}
	if err := json.Unmarshal(fitJSON, &rec.Fitness); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "unmarshal fitness")
	}
	return rec, nil
}
