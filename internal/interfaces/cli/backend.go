package cli

import (
	"context"

	"github.com/turtacn/ContractLens/internal/app"
	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/internal/intelligence/eval"
	"github.com/turtacn/ContractLens/pkg/client"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// Backend is what the analysis commands run against.
type Backend interface {
	Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*contract.ContractAnalysis, error)
	Ask(ctx context.Context, text, question string) (contract.AnswerResult, error)
	Detect(ctx context.Context, text string) (analysis.DetectResult, error)
	SubmitJob(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.JobTicket, error)
	History(ctx context.Context, f contract.AnalysisFilter) (*analysis.AnalysisPage, error)
	SearchClauses(ctx context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error)
	Close() error
}

// BackendFactory opens a Backend for one command invocation.
type BackendFactory func(ctx context.Context, cliCtx *CLIContext) (Backend, error)

// BaselineFactory opens the single-question baseline used by eval samples.
// The returned func releases it.
type BaselineFactory func(ctx context.Context, cliCtx *CLIContext) (eval.Baseline, func() error, error)

func defaultBackend(ctx context.Context, cliCtx *CLIContext) (Backend, error) {
	if cliCtx.ServerAddr != "" {
		c, err := client.NewClient(cliCtx.ServerAddr, client.WithTimeout(cliCtx.Timeout))
		if err != nil {
			return nil, err
		}
		return remoteBackend{c: c}, nil
	}
	comps, err := app.Build(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return nil, err
	}
	return &localBackend{comps: comps}, nil
}

func defaultBaseline(ctx context.Context, cliCtx *CLIContext) (eval.Baseline, func() error, error) {
	comps, err := app.Build(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	return comps.Session, comps.Close, nil
}

type localBackend struct {
	comps *app.Components
}

func (b *localBackend) Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*contract.ContractAnalysis, error) {
	return b.comps.Service.AnalyzeContract(ctx, req)
}

func (b *localBackend) Ask(ctx context.Context, text, question string) (contract.AnswerResult, error) {
	return b.comps.Service.AskQuestion(ctx, text, question)
}

func (b *localBackend) Detect(_ context.Context, text string) (analysis.DetectResult, error) {
	return b.comps.Service.DetectContractType(text)
}

func (b *localBackend) SubmitJob(context.Context, analysis.AnalyzeRequest) (*analysis.JobTicket, error) {
	return nil, errors.New(errors.ErrCodeFeatureDisabled, "asynchronous jobs need --server")
}

func (b *localBackend) History(ctx context.Context, f contract.AnalysisFilter) (*analysis.AnalysisPage, error) {
	return b.comps.Service.ListAnalyses(ctx, f)
}

func (b *localBackend) SearchClauses(ctx context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error) {
	return b.comps.Service.SearchClauses(ctx, q)
}

func (b *localBackend) Close() error { return b.comps.Close() }

type remoteBackend struct {
	c *client.Client
}

func toClientRequest(req analysis.AnalyzeRequest) client.AnalyzeRequest {
	return client.AnalyzeRequest{
		Text:         req.Text,
		ObjectKey:    req.ObjectKey,
		Categories:   req.Categories,
		Enhance:      req.Enhance,
		AnalysisType: req.AnalysisType,
	}
}

func (b remoteBackend) Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*contract.ContractAnalysis, error) {
	return b.c.Analyze(ctx, toClientRequest(req))
}

func (b remoteBackend) Ask(ctx context.Context, text, question string) (contract.AnswerResult, error) {
	return b.c.Ask(ctx, text, question)
}

func (b remoteBackend) Detect(ctx context.Context, text string) (analysis.DetectResult, error) {
	res, err := b.c.Detect(ctx, text)
	if err != nil {
		return analysis.DetectResult{}, err
	}
	return analysis.DetectResult{ContractType: res.ContractType, RelevantCategories: res.RelevantCategories}, nil
}

func (b remoteBackend) SubmitJob(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.JobTicket, error) {
	t, err := b.c.SubmitJob(ctx, toClientRequest(req))
	if err != nil {
		return nil, err
	}
	return &analysis.JobTicket{JobID: t.JobID, Topic: t.Topic, SubmittedAt: t.SubmittedAt}, nil
}

func (b remoteBackend) History(ctx context.Context, f contract.AnalysisFilter) (*analysis.AnalysisPage, error) {
	p, err := b.c.ListAnalyses(ctx, f)
	if err != nil {
		return nil, err
	}
	return &analysis.AnalysisPage{Items: p.Items, Total: p.Total, Limit: p.Limit, Offset: p.Offset}, nil
}

func (b remoteBackend) SearchClauses(ctx context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error) {
	return b.c.SearchClauses(ctx, q)
}

func (remoteBackend) Close() error { return nil }

//Personal.AI order the ending
