package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/grid"
)

// fakeBackend records every mutation it receives.
type fakeBackend struct {
	mu            sync.Mutex
	requests      []graphqlRequest
	nextID        int
	failIDs       string
	rejectUpdates bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if ids, ok := req.Variables["ids"].([]any); ok {
		for _, id := range ids {
			if id == b.failIDs {
				_, _ = fmt.Fprintf(w, `{"errors":[{"message":"row %s is locked"}]}`, id)
				return
			}
		}
		_, _ = fmt.Fprintf(w, `{"data":{"deleteBomItems":{"deletedCount":%d}}}`, len(ids))
		return
	}

	if updated, _ := req.Variables["updatedRows"].([]any); b.rejectUpdates && len(updated) > 0 {
		_, _ = w.Write([]byte(`{"errors":[{"message":"updates are frozen"}]}`))
		return
	}

	created, _ := req.Variables["createdRows"].([]any)
	b.mu.Lock()
	out := make([]int, len(created))
	for i := range created {
		b.nextID++
		out[i] = 100 + b.nextID
	}
	b.mu.Unlock()
	payload, _ := json.Marshal(map[string]any{"data": map[string]any{
		"saveBomItems": map[string]any{"createdIds": out},
	}})
	_, _ = w.Write(payload)
}

func (b *fakeBackend) recorded() []graphqlRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]graphqlRequest(nil), b.requests...)
}

func newTestSubmitter(t *testing.T, backend *fakeBackend, batchSize int) *Submitter {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := config.BackendConfig{
		Endpoint:    srv.URL,
		Timeout:     5 * time.Second,
		BatchSize:   batchSize,
		Concurrency: 2,
	}
	return NewSubmitter(NewClient(cfg, WithBackoff(noBackoff)), cfg)
}

func TestSubmitter_SaveBatches(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(t, backend, 2)

	payload := grid.FormatSave(
		[]grid.Row{{"id": "NEW_1", "qty": 1}, {"id": "NEW_2", "qty": 2}, {"id": "NEW_3", "qty": 3}},
		[]grid.Row{{"id": "7", "qty": 70}},
		grid.Identity, grid.Identity,
	)

	res, err := s.Save(context.Background(), SaveRequest{
		Grid:     "bom",
		Mutation: "saveBomItems",
		TempIDs:    []string{"NEW_1", "NEW_2", "NEW_3"},
		UpdatedIDs: []string{"7"},
		Payload:    payload,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"NEW_1": "101", "NEW_2": "102", "NEW_3": "103"}, res.Assigned)
	assert.Equal(t, []string{"7"}, res.UpdatedIDs)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.Updated)

	requests := backend.recorded()
	require.Len(t, requests, 3)
	assert.Len(t, requests[0].Variables["createdRows"], 2)
	assert.Len(t, requests[1].Variables["createdRows"], 1)
	assert.Empty(t, requests[2].Variables["createdRows"])
	assert.Len(t, requests[2].Variables["updatedRows"], 1)
	assert.True(t, strings.Contains(requests[0].Query, "saveBomItems(createdRows: $createdRows"))
}

func TestSubmitter_SaveEmptyPayload(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(t, backend, 10)

	res, err := s.Save(context.Background(), SaveRequest{
		Grid:     "bom",
		Mutation: "saveBomItems",
		Payload:  grid.FormatSave[grid.Row, grid.Row](nil, nil, grid.Identity, grid.Identity),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Assigned)
	assert.Empty(t, backend.recorded())
}

func TestSubmitter_SavePartialFailure(t *testing.T) {
	backend := &fakeBackend{rejectUpdates: true}
	s := newTestSubmitter(t, backend, 2)

	payload := grid.FormatSave(
		[]grid.Row{{"id": "NEW_1", "qty": 1}},
		[]grid.Row{{"id": "7", "qty": 70}},
		grid.Identity, grid.Identity,
	)
	res, err := s.Save(context.Background(), SaveRequest{
		Grid:       "bom",
		Mutation:   "saveBomItems",
		TempIDs:    []string{"NEW_1"},
		UpdatedIDs: []string{"7"},
		Payload:    payload,
	})

	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, map[string]string{"NEW_1": "101"}, res.Assigned, "committed batches are reported")
	assert.Empty(t, res.UpdatedIDs)
	assert.Len(t, backend.recorded(), 2)
}

func TestSubmitter_Validation(t *testing.T) {
	s := newTestSubmitter(t, &fakeBackend{}, 10)

	_, err := s.Save(context.Background(), SaveRequest{Grid: "bom", Mutation: "save rows"})
	require.ErrorIs(t, err, ErrInvalidMutation)

	_, err = s.Save(context.Background(), SaveRequest{
		Grid:     "bom",
		Mutation: "saveBomItems",
		Payload:  grid.SavePayload[grid.Row, grid.Row]{CreatedRows: []grid.Row{{"qty": 1}}},
	})
	assert.ErrorContains(t, err, "0 temp ids for 1 created rows")

	_, err = s.Save(context.Background(), SaveRequest{
		Grid:     "bom",
		Mutation: "saveBomItems",
		Payload:  grid.SavePayload[grid.Row, grid.Row]{UpdatedRows: []grid.Row{{"id": "7"}}},
	})
	assert.ErrorContains(t, err, "0 updated ids for 1 updated rows")

	_, err = s.Delete(context.Background(), DeleteRequest{Grid: "bom", Mutation: ""})
	require.ErrorIs(t, err, ErrInvalidMutation)
}

func TestSubmitter_Delete(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(t, backend, 2)

	deleted, err := s.Delete(context.Background(), DeleteRequest{
		Grid:     "bom",
		Mutation: "deleteBomItems",
		IDs:      []string{"1", "2", "3", "4", "5"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, deleted)
	assert.Len(t, backend.recorded(), 3)

	deleted, err = s.Delete(context.Background(), DeleteRequest{Grid: "bom", Mutation: "deleteBomItems"})
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestSubmitter_DeletePartialFailure(t *testing.T) {
	backend := &fakeBackend{failIDs: "1"}
	s := newTestSubmitter(t, backend, 2)

	deleted, err := s.Delete(context.Background(), DeleteRequest{
		Grid:     "bom",
		Mutation: "deleteBomItems",
		IDs:      []string{"1", "2", "3", "4"},
	})

	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"row 1 is locked"}, gqlErr.Messages)
	assert.NotContains(t, deleted, "1")
	assert.NotContains(t, deleted, "2")
}
