package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/herdlog/internal/domain/errs"
	"github.com/mamadbah2/herdlog/internal/domain/models"
	"github.com/mamadbah2/herdlog/internal/repository/memory"
	"github.com/mamadbah2/herdlog/internal/service/approval"
	"github.com/mamadbah2/herdlog/internal/service/ingestion"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type ingestorFunc func(ctx context.Context, req ingestion.Request) (models.IngestResult, error)

func (f ingestorFunc) Process(ctx context.Context, req ingestion.Request) (models.IngestResult, error) {
	return f(ctx, req)
}

type fakeApprovals struct {
	err      error
	actor    models.Actor
	id       string
	reason   string
	status   models.ApprovalStatus
	approved models.PendingApproval
}

func (f *fakeApprovals) List(_ context.Context, actor models.Actor, status models.ApprovalStatus) ([]models.PendingApproval, error) {
	f.actor, f.status = actor, status
	if f.err != nil {
		return nil, f.err
	}
	return []models.PendingApproval{f.approved}, nil
}

func (f *fakeApprovals) Approve(_ context.Context, actor models.Actor, id string) (models.PendingApproval, error) {
	f.actor, f.id = actor, id
	return f.approved, f.err
}

func (f *fakeApprovals) Reject(_ context.Context, actor models.Actor, id, reason string) (models.PendingApproval, error) {
	f.actor, f.id, f.reason = actor, id, reason
	return f.approved, f.err
}

func members() *memory.Store {
	store := memory.NewStore()
	store.PutMember(models.Membership{UserID: "u-1", FarmID: "farm-1", Role: models.RoleFarmhand})
	store.PutMember(models.Membership{UserID: "u-9", FarmID: "farm-1", Role: models.RoleManager})
	return store
}

func engine(t *testing.T, activities *ActivityHandler, approvals *ApprovalHandler) *gin.Engine {
	t.Helper()
	r := gin.New()
	api := r.Group("/api/v1", RequireActor(members(), zaptest.NewLogger(t)))
	api.POST("/activities/voice", activities.Voice)
	api.GET("/approvals", approvals.List)
	api.POST("/approvals/:id/approve", approvals.Approve)
	api.POST("/approvals/:id/reject", approvals.Reject)
	return r
}

func do(r http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
		req.Header.Set(HeaderFarmID, "farm-1")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVoice_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		result models.IngestResult
		want   int
	}{
		{"committed", models.IngestResult{Outcome: models.OutcomeCommitted}, http.StatusCreated},
		{"queued", models.IngestResult{Outcome: models.OutcomeQueued}, http.StatusAccepted},
		{"clarification", models.IngestResult{Outcome: models.OutcomeClarification, Options: []string{"A002 Bessie"}}, http.StatusUnprocessableEntity},
		{"validation", models.IngestResult{Outcome: models.OutcomeRejected, ErrorKind: string(errs.KindInputValidation)}, http.StatusBadRequest},
		{"authorization", models.IngestResult{Outcome: models.OutcomeRejected, ErrorKind: string(errs.KindAuthorization)}, http.StatusForbidden},
		{"timeout", models.IngestResult{Outcome: models.OutcomeRejected, ErrorKind: string(errs.KindUpstreamTimeout), Retryable: true}, http.StatusGatewayTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ing := ingestorFunc(func(context.Context, ingestion.Request) (models.IngestResult, error) {
				return tc.result, nil
			})
			r := engine(t, NewActivityHandler(ing, zaptest.NewLogger(t)), NewApprovalHandler(&fakeApprovals{}, nil))

			w := do(r, http.MethodPost, "/api/v1/activities/voice", "u-1", `{"transcription":"fed the cows"}`)
			assert.Equal(t, tc.want, w.Code)

			var got models.IngestResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tc.result.Outcome, got.Outcome)
		})
	}
}

func TestVoice_PassesActorAndHints(t *testing.T) {
	var seen ingestion.Request
	ing := ingestorFunc(func(_ context.Context, req ingestion.Request) (models.IngestResult, error) {
		seen = req
		return models.IngestResult{Outcome: models.OutcomeCommitted}, nil
	})
	r := engine(t, NewActivityHandler(ing, nil), NewApprovalHandler(&fakeApprovals{}, nil))

	w := do(r, http.MethodPost, "/api/v1/activities/voice", "u-1",
		`{"transcription":"gave her 5kg maize","animal_id":"cow-1","feed_type":"Maize Bran"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, models.Actor{UserID: "u-1", FarmID: "farm-1", Role: models.RoleFarmhand}, seen.Actor)
	assert.Equal(t, "cow-1", seen.AnimalID)
	assert.Equal(t, "Maize Bran", seen.FeedTypeHint)
}

func TestVoice_InfrastructureFailure(t *testing.T) {
	ing := ingestorFunc(func(context.Context, ingestion.Request) (models.IngestResult, error) {
		return models.IngestResult{}, errors.New("store unavailable")
	})
	r := engine(t, NewActivityHandler(ing, zaptest.NewLogger(t)), NewApprovalHandler(&fakeApprovals{}, nil))

	w := do(r, http.MethodPost, "/api/v1/activities/voice", "u-1", `{"transcription":"fed the cows"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireActor(t *testing.T) {
	ing := ingestorFunc(func(context.Context, ingestion.Request) (models.IngestResult, error) {
		t.Fatal("pipeline must not run for unauthenticated callers")
		return models.IngestResult{}, nil
	})
	r := engine(t, NewActivityHandler(ing, nil), NewApprovalHandler(&fakeApprovals{}, nil))

	w := do(r, http.MethodPost, "/api/v1/activities/voice", "", `{"transcription":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/v1/activities/voice", "stranger", `{"transcription":"x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApprovals_List(t *testing.T) {
	svc := &fakeApprovals{approved: models.PendingApproval{ID: "ap-1", FarmID: "farm-1", Status: models.ApprovalPending}}
	r := engine(t, NewActivityHandler(nil, nil), NewApprovalHandler(svc, zaptest.NewLogger(t)))

	w := do(r, http.MethodGet, "/api/v1/approvals", "u-9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ApprovalPending, svc.status)
	assert.Equal(t, models.RoleManager, svc.actor.Role)

	var body struct {
		Approvals []models.PendingApproval `json:"approvals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Approvals, 1)
	assert.Equal(t, "ap-1", body.Approvals[0].ID)
}

func TestApprovals_Reject(t *testing.T) {
	svc := &fakeApprovals{approved: models.PendingApproval{ID: "ap-1", Status: models.ApprovalRejected}}
	r := engine(t, NewActivityHandler(nil, nil), NewApprovalHandler(svc, zaptest.NewLogger(t)))

	w := do(r, http.MethodPost, "/api/v1/approvals/ap-1/reject", "u-9", `{"reason":"wrong quantity"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ap-1", svc.id)
	assert.Equal(t, "wrong quantity", svc.reason)
}

func TestApprovals_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("load approval: %w", models.ErrNotFound), http.StatusNotFound},
		{"already decided", approval.ErrNotPending, http.StatusConflict},
		{"not reviewer", errs.New(errs.KindAuthorization, errs.CodeNotReviewer, "Refusé", "Denied"), http.StatusForbidden},
		{"commit failed", errors.New("insert failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := engine(t, NewActivityHandler(nil, nil), NewApprovalHandler(&fakeApprovals{err: tc.err}, zaptest.NewLogger(t)))

			w := do(r, http.MethodPost, "/api/v1/approvals/ap-1/approve", "u-9", "")
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
