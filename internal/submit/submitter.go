package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/mesgrid/internal/batch"
	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/grid"
)

var mutationName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

const saveQuery = `mutation SaveRows($createdRows: [JSON!]!, $updatedRows: [JSON!]!) {
  %s(createdRows: $createdRows, updatedRows: $updatedRows) { createdIds }
}`

const deleteQuery = `mutation DeleteRows($ids: [ID!]!) {
  %s(ids: $ids) { deletedCount }
}`

// SaveRequest is one grid's save payload. TempIDs holds the temporary id of
// each entry in Payload.CreatedRows, in the same order, because create
// mappers may strip the id before sending. UpdatedIDs does the same for
// Payload.UpdatedRows.
type SaveRequest struct {
	Grid       string
	Mutation   string
	TempIDs    []string
	UpdatedIDs []string
	Payload    grid.SavePayload[grid.Row, grid.Row]
}

// SaveResult maps temporary ids to the ids the backend assigned and lists the
// updated row ids it acknowledged. On a failed save it holds whatever the
// batches before the failure committed.
type SaveResult struct {
	Assigned   map[string]string
	UpdatedIDs []string
	Created    int
	Updated    int
}

// DeleteRequest lists persisted ids to delete from one grid.
type DeleteRequest struct {
	Grid     string
	Mutation string
	IDs      []string
}

// Submitter dispatches batched mutations for grids. Callers serialize
// submissions of one grid with a Guard.
type Submitter struct {
	client      *Client
	batchSize   int
	concurrency int
	logger      zerolog.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the submitter logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Submitter) { s.logger = l.With().Str("component", "submit").Logger() }
}

// NewSubmitter creates a submitter using cfg's batch size and concurrency.
func NewSubmitter(client *Client, cfg config.BackendConfig, opts ...Option) *Submitter {
	s := &Submitter{
		client:      client,
		batchSize:   cfg.BatchSize,
		concurrency: max(cfg.Concurrency, 1),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save sends created rows then updated rows, one mutation per batch, in
// order. It stops at the first failed batch.
func (s *Submitter) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	result := SaveResult{Assigned: make(map[string]string)}
	if !mutationName.MatchString(req.Mutation) {
		return result, fmt.Errorf("%w: %q", ErrInvalidMutation, req.Mutation)
	}
	if len(req.TempIDs) != len(req.Payload.CreatedRows) {
		return result, fmt.Errorf("save %s: %d temp ids for %d created rows",
			req.Grid, len(req.TempIDs), len(req.Payload.CreatedRows))
	}
	if len(req.UpdatedIDs) != len(req.Payload.UpdatedRows) {
		return result, fmt.Errorf("save %s: %d updated ids for %d updated rows",
			req.Grid, len(req.UpdatedIDs), len(req.Payload.UpdatedRows))
	}

	proc, err := batch.NewProcessor[int](s.batchSize)
	if err != nil {
		return result, err
	}
	query := fmt.Sprintf(saveQuery, req.Mutation)
	log := s.logger.With().Str("operation", "save").Str("grid", req.Grid).Int("batch_size", proc.BatchSize()).Logger()

	if n := len(req.Payload.CreatedRows); n > 0 {
		err = proc.Process(ctx, indexes(n), func(ctx context.Context, idx []int, batchIndex int) error {
			created := make([]grid.Row, len(idx))
			for i, j := range idx {
				created[i] = req.Payload.CreatedRows[j]
			}
			log.Debug().Int("batch", batchIndex).Int("rows", len(created)).Msg("sending created rows")

			ids, sendErr := s.sendSave(ctx, req.Mutation, query, created, []grid.Row{})
			if sendErr != nil {
				return sendErr
			}
			for i, j := range idx {
				if i < len(ids) && ids[i] != "" {
					result.Assigned[req.TempIDs[j]] = ids[i]
				}
			}
			if len(ids) != len(idx) {
				log.Warn().Int("sent", len(idx)).Int("acknowledged", len(ids)).Msg("backend returned unexpected id count")
			}
			result.Created += len(idx)
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("save %s: %w", req.Grid, err)
		}
	}

	if n := len(req.Payload.UpdatedRows); n > 0 {
		err = proc.Process(ctx, indexes(n), func(ctx context.Context, idx []int, batchIndex int) error {
			updated := make([]grid.Row, len(idx))
			for i, j := range idx {
				updated[i] = req.Payload.UpdatedRows[j]
			}
			log.Debug().Int("batch", batchIndex).Int("rows", len(updated)).Msg("sending updated rows")

			if _, sendErr := s.sendSave(ctx, req.Mutation, query, []grid.Row{}, updated); sendErr != nil {
				return sendErr
			}
			for _, j := range idx {
				result.UpdatedIDs = append(result.UpdatedIDs, req.UpdatedIDs[j])
			}
			result.Updated += len(idx)
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("save %s: %w", req.Grid, err)
		}
	}

	log.Info().Int("created", result.Created).Int("updated", result.Updated).Msg("save submitted")
	return result, nil
}

func (s *Submitter) sendSave(ctx context.Context, mutation, query string, created, updated []grid.Row) ([]string, error) {
	data, err := s.client.DoOnce(ctx, mutation, query, map[string]any{
		"createdRows": created,
		"updatedRows": updated,
	})
	if err != nil {
		return nil, err
	}

	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	// Backends return ids as either numbers or strings.
	var resp map[string]struct {
		CreatedIDs []any `json:"createdIds"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err = dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", mutation, err)
	}
	ids := make([]string, 0, len(resp[mutation].CreatedIDs))
	for _, id := range resp[mutation].CreatedIDs {
		if id == nil {
			ids = append(ids, "")
			continue
		}
		ids = append(ids, fmt.Sprint(id))
	}
	return ids, nil
}

// Delete sends ids in batches with bounded concurrency. It returns the ids of
// every batch the backend accepted, even when another batch failed.
func (s *Submitter) Delete(ctx context.Context, req DeleteRequest) ([]string, error) {
	if !mutationName.MatchString(req.Mutation) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMutation, req.Mutation)
	}
	if len(req.IDs) == 0 {
		return []string{}, nil
	}

	proc, err := batch.NewProcessor[string](s.batchSize)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(deleteQuery, req.Mutation)
	log := s.logger.With().Str("operation", "delete").Str("grid", req.Grid).Int("batch_size", proc.BatchSize()).Logger()
	proc.WithProgressCallback(func(p batch.ProgressSnapshot) {
		log.Debug().
			Int("batches_done", p.ProcessedBatches).
			Int("batches", p.TotalBatches).
			Float64("percent", p.PercentComplete).
			Dur("elapsed", p.ElapsedTime).
			Msg("delete progress")
	})

	var mu sync.Mutex
	accepted := make(map[int][]string)
	err = proc.ProcessConcurrent(ctx, req.IDs, func(ctx context.Context, ids []string, batchIndex int) error {
		log.Debug().Int("batch", batchIndex).Int("rows", len(ids)).Msg("sending deletes")
		if _, sendErr := s.client.Do(ctx, req.Mutation, query, map[string]any{"ids": ids}); sendErr != nil {
			return sendErr
		}
		mu.Lock()
		accepted[batchIndex] = ids
		mu.Unlock()
		return nil
	}, s.concurrency)

	deleted := make([]string, 0, len(req.IDs))
	for i := range proc.CalculateBatches(len(req.IDs)) {
		deleted = append(deleted, accepted[i]...)
	}

	if err != nil {
		log.Error().Err(err).Int("deleted", len(deleted)).Msg("delete partially failed")
		return deleted, fmt.Errorf("delete %s: %w", req.Grid, err)
	}
	log.Info().Int("deleted", len(deleted)).Msg("delete submitted")
	return deleted, nil
}

func indexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
