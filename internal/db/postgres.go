package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/ra-engine/pkg/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for the RA engine")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("RA analysis schema initialized")
	return nil
}

// SaveDataset persists a dataset summary together with its raw spec so a
// registered dataset survives engine restarts.
func (s *PostgresStore) SaveDataset(ctx context.Context, summary models.DatasetSummary, spec models.DatasetSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode dataset spec: %v", err)
	}
	sql := `
		INSERT INTO datasets (id, name, variable_count, sample_size, state_space, populated_keys, directed, data_entropy, spec)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, spec = EXCLUDED.spec;
	`
	_, err = s.pool.Exec(ctx, sql,
		summary.ID, summary.Name, summary.VariableCount, summary.SampleSize,
		summary.StateSpace, summary.PopulatedKeys, summary.Directed, summary.DataEntropy, specJSON)
	return err
}

// LoadDatasetSpecs returns the raw specs of every stored dataset, keyed by
// id, for warm-loading at startup.
func (s *PostgresStore) LoadDatasetSpecs(ctx context.Context) (map[string]models.DatasetSpec, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, spec FROM datasets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.DatasetSpec)
	for rows.Next() {
		var id string
		var specJSON []byte
		if err := rows.Scan(&id, &specJSON); err != nil {
			return nil, err
		}
		var spec models.DatasetSpec
		if err := json.Unmarshal(specJSON, &spec); err != nil {
			return nil, fmt.Errorf("dataset %s: corrupt stored spec: %v", id, err)
		}
		out[id] = spec
	}
	return out, rows.Err()
}

// SaveFitResult persists one fitted model summary for a dataset.
func (s *PostgresStore) SaveFitResult(ctx context.Context, datasetID string, fit models.FitResult) error {
	sql := `
		INSERT INTO fit_results
		(dataset_id, model_name, has_loops, h, t, lr, df, ddf, aic, bic, alpha, ipf_iterations, converged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (dataset_id, model_name) DO UPDATE
		SET h = EXCLUDED.h, t = EXCLUDED.t, lr = EXCLUDED.lr, df = EXCLUDED.df,
		    ddf = EXCLUDED.ddf, aic = EXCLUDED.aic, bic = EXCLUDED.bic,
		    alpha = EXCLUDED.alpha, ipf_iterations = EXCLUDED.ipf_iterations,
		    converged = EXCLUDED.converged;
	`
	_, err := s.pool.Exec(ctx, sql,
		datasetID, fit.ModelName, fit.HasLoops, fit.H, fit.T, fit.LR, fit.DF,
		fit.DDF, fit.AIC, fit.BIC, fit.Alpha, fit.IPFIterations, fit.Converged)
	return err
}

// SaveSearchRun upserts the run header and batch-inserts its candidates in
// one transaction.
func (s *PostgresStore) SaveSearchRun(ctx context.Context, run models.SearchRun) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reqJSON, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("failed to encode search request: %v", err)
	}
	headerSQL := `
		INSERT INTO search_runs (id, dataset_id, status, request, current_level, models_evaluated, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, current_level = EXCLUDED.current_level,
		    models_evaluated = EXCLUDED.models_evaluated, error = EXCLUDED.error;
	`
	if _, err = tx.Exec(ctx, headerSQL,
		run.ID, run.DatasetID, run.Status, reqJSON, run.CurrentLevel, run.ModelsEvaluated, run.Error); err != nil {
		return fmt.Errorf("failed to upsert search run: %v", err)
	}

	if len(run.Candidates) > 0 {
		if _, err = tx.Exec(ctx, `DELETE FROM search_candidates WHERE run_id = $1`, run.ID); err != nil {
			return fmt.Errorf("failed to clear stale candidates: %v", err)
		}
		candSQL := `
			INSERT INTO search_candidates (run_id, rank, model_name, statistic, level, aic, bic, alpha, has_loops)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
		`
		for rank, c := range run.Candidates {
			if _, err = tx.Exec(ctx, candSQL,
				run.ID, rank, c.ModelName, c.Statistic, c.Level,
				c.Fit.AIC, c.Fit.BIC, c.Fit.Alpha, c.Fit.HasLoops); err != nil {
				return fmt.Errorf("failed to insert candidate: %v", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// GetSearchRun loads a run header and its ranked candidates.
func (s *PostgresStore) GetSearchRun(ctx context.Context, runID string) (*models.SearchRun, error) {
	var run models.SearchRun
	var reqJSON []byte
	row := s.pool.QueryRow(ctx, `
		SELECT id, dataset_id, status, request, current_level, models_evaluated, COALESCE(error, '')
		FROM search_runs WHERE id = $1`, runID)
	if err := row.Scan(&run.ID, &run.DatasetID, &run.Status, &reqJSON, &run.CurrentLevel, &run.ModelsEvaluated, &run.Error); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reqJSON, &run.Request); err != nil {
		return nil, fmt.Errorf("run %s: corrupt stored request: %v", runID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT model_name, statistic, level, aic, bic, alpha, has_loops
		FROM search_candidates WHERE run_id = $1 ORDER BY rank`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c models.SearchCandidate
		if err := rows.Scan(&c.ModelName, &c.Statistic, &c.Level,
			&c.Fit.AIC, &c.Fit.BIC, &c.Fit.Alpha, &c.Fit.HasLoops); err != nil {
			return nil, err
		}
		c.Fit.ModelName = c.ModelName
		run.Candidates = append(run.Candidates, c)
	}
	return &run, rows.Err()
}

// GetPool exposes the connection pool for the crosscheck runner and other
// subsystems
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
