package handlers

import (
	"context"
	"net/http"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
)

// JobQueue accepts asynchronous analyses.
type JobQueue interface {
	Submit(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.JobTicket, error)
}

// JobHandler serves POST /api/v1/jobs.
type JobHandler struct {
	queue   JobQueue
	log     logging.Logger
	maxBody int64
}

func NewJobHandler(queue JobQueue, log logging.Logger, maxBody int64) *JobHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &JobHandler{queue: queue, log: log, maxBody: maxBody}
}

// Submit queues an analysis and answers 202 with the job ticket.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeBody
	if err := decodeJSON(w, r, h.maxBody, &body); err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	ticket, err := h.queue.Submit(r.Context(), req)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeData(w, r, http.StatusAccepted, ticket)
}

//Personal.AI order the ending
