package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Submit(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.JobTicket, error) {
	args := m.Called(ctx, req)
	if t, ok := args.Get(0).(*analysis.JobTicket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestJobHandler_Submit(t *testing.T) {
	q := new(mockQueue)
	ticket := &analysis.JobTicket{JobID: "job-1", Topic: "contract.analysis.requested", SubmittedAt: time.Unix(0, 0).UTC()}
	q.On("Submit", mock.Anything, mock.MatchedBy(func(req analysis.AnalyzeRequest) bool {
		return req.ObjectKey == "acme/msa.txt" &&
			len(req.Categories) == 1 && req.Categories[0] == contract.CategoryTermination
	})).Return(ticket, nil).Once()

	w := post(NewJobHandler(q, nil, 0).Submit, `{"object_key":"acme/msa.txt","categories":["termination"]}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeEnvelope[analysis.JobTicket](t, w)
	assert.Equal(t, "job-1", resp.Data.JobID)
	q.AssertExpectations(t)
}

func TestJobHandler_SubmitErrors(t *testing.T) {
	t.Run("bad category", func(t *testing.T) {
		q := new(mockQueue)
		w := post(NewJobHandler(q, nil, 0).Submit, `{"text":"x","categories":["nope"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		q.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})
	t.Run("broker down", func(t *testing.T) {
		q := new(mockQueue)
		q.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.New(errors.ErrCodeMessageQueueError, "publish failed"))
		w := post(NewJobHandler(q, nil, 0).Submit, `{"text":"x"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

//Personal.AI order the ending
