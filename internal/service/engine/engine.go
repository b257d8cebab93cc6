// Package engine runs poll cycles against CodePipeline and persists the
// resulting snapshot. One bad pipeline never aborts a cycle; only a failure
// to list pipelines at all (or to resolve credentials) does.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/rs/zerolog"

	"pipewatch/internal/awsclient"
	"pipewatch/internal/models"
	"pipewatch/pkg/log"
)

const (
	// listPageSize matches the CodePipeline ListPipelines maximum.
	listPageSize = 100

	// executionFetchCount bounds how many recent executions are kept per
	// pipeline.
	executionFetchCount = 5

	remoteCallTimeout = 15 * time.Second
)

// CredentialResolver yields an active credential for one cycle or one
// approval call.
type CredentialResolver interface {
	Resolve(ctx context.Context, settings models.Settings) (awsclient.ResolvedCredential, error)
}

// ClientFactory builds an authenticated CodePipeline client.
type ClientFactory interface {
	NewClient(ctx context.Context, credential awsclient.ResolvedCredential, region string) (awsclient.PipelineAPI, error)
}

// StateStore is the slice of the store the engine writes through.
type StateStore interface {
	GetSettings() (models.Settings, error)
	SaveSnapshot(snapshot models.SyncSnapshot) error
}

type Engine struct {
	logger      zerolog.Logger
	resolver    CredentialResolver
	clients     ClientFactory
	store       StateStore
	concurrency int
	now         func() time.Time
}

func New(resolver CredentialResolver, clients ClientFactory, store StateStore, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		logger:      log.Logger.With().Str("component", "sync_engine").Logger(),
		resolver:    resolver,
		clients:     clients,
		store:       store,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// RunCycle performs one full poll cycle and persists the snapshot. When
// credentials are not configured it returns awsclient.ErrNotConfigured
// without writing anything; every other failure still writes a snapshot
// carrying the error.
func (e *Engine) RunCycle(ctx context.Context) error {
	startTime := e.now()
	e.logger.Debug().Msg("Starting poll cycle")

	settings, err := e.store.GetSettings()
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to load settings")
		return e.failCycle(err)
	}

	credential, err := e.resolver.Resolve(ctx, settings)
	if errors.Is(err, awsclient.ErrNotConfigured) {
		e.logger.Debug().Msg("Credentials not configured, skipping cycle")
		return err
	}
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to resolve credentials")
		return e.failCycle(err)
	}

	client, err := e.clients.NewClient(ctx, credential, settings.Region)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to create CodePipeline client")
		return e.failCycle(err)
	}

	names, err := e.listPipelines(ctx, client)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to list pipelines")
		return e.failCycle(err)
	}

	matched := make([]string, 0, len(names))
	for _, name := range names {
		if settings.MatchesFilter(name) {
			matched = append(matched, name)
		}
	}

	statuses := e.fetchAll(ctx, client, matched)

	failed := 0
	for _, status := range statuses {
		if len(status.Executions) == 0 {
			failed++
		}
	}

	snapshot := models.SyncSnapshot{
		LastUpdated:      e.now().UTC(),
		Pipelines:        statuses,
		TotalPipelines:   len(names),
		MatchedPipelines: len(matched),
	}
	if err := e.store.SaveSnapshot(snapshot); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist snapshot")
		return err
	}

	e.logger.Info().
		Int("total_pipelines", len(names)).
		Int("matched_pipelines", len(matched)).
		Int("empty_pipelines", failed).
		Dur("duration", e.now().Sub(startTime)).
		Msg("Poll cycle completed")
	return nil
}

// failCycle persists an error snapshot so the presentation layer is never
// left looking at stale data with no explanation.
func (e *Engine) failCycle(cause error) error {
	snapshot := models.SyncSnapshot{
		LastUpdated: e.now().UTC(),
		Pipelines:   []models.PipelineStatus{},
		Error:       cause.Error(),
	}
	if err := e.store.SaveSnapshot(snapshot); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist error snapshot")
	}
	return cause
}

// listPipelines pages through ListPipelines until no continuation token is
// returned. Pagination is sequential: each page depends on the prior token.
func (e *Engine) listPipelines(ctx context.Context, client awsclient.PipelineAPI) ([]string, error) {
	var names []string
	var nextToken *string

	for {
		out, err := e.listPage(ctx, client, nextToken)
		if err != nil {
			return nil, err
		}
		for _, pipeline := range out.Pipelines {
			if pipeline.Name != nil {
				names = append(names, *pipeline.Name)
			}
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return names, nil
		}
		nextToken = out.NextToken
	}
}

func (e *Engine) listPage(ctx context.Context, client awsclient.PipelineAPI, nextToken *string) (*codepipeline.ListPipelinesOutput, error) {
	callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()

	return client.ListPipelines(callCtx, &codepipeline.ListPipelinesInput{
		MaxResults: aws.Int32(listPageSize),
		NextToken:  nextToken,
	})
}

// fetchAll fans per-pipeline fetches out over a bounded worker pool. Each
// worker writes a disjoint slot, so the result order matches the matched
// pipeline order.
func (e *Engine) fetchAll(ctx context.Context, client awsclient.PipelineAPI, pipelines []string) []models.PipelineStatus {
	statuses := make([]models.PipelineStatus, len(pipelines))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.concurrency)

	for i, name := range pipelines {
		wg.Add(1)
		go func(slot int, pipelineName string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			statuses[slot] = e.fetchPipeline(ctx, client, pipelineName)
		}(i, name)
	}
	wg.Wait()

	return statuses
}

// fetchPipeline returns the recent executions for one pipeline, with a
// pending approval attached to the newest execution when one is waiting.
// Any failure is swallowed into an empty execution list.
func (e *Engine) fetchPipeline(ctx context.Context, client awsclient.PipelineAPI, pipelineName string) models.PipelineStatus {
	status := models.PipelineStatus{
		PipelineName: pipelineName,
		Executions:   []models.PipelineExecutionSummary{},
	}

	callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()

	out, err := client.ListPipelineExecutions(callCtx, &codepipeline.ListPipelineExecutionsInput{
		PipelineName: aws.String(pipelineName),
		MaxResults:   aws.Int32(executionFetchCount),
	})
	if err != nil {
		e.logger.Error().Err(err).Str("pipeline", pipelineName).Msg("Failed to list executions")
		return status
	}

	executions := make([]models.PipelineExecutionSummary, 0, len(out.PipelineExecutionSummaries))
	for _, summary := range out.PipelineExecutionSummaries {
		executions = append(executions, mapExecution(summary))
	}

	if len(executions) > 0 && executions[0].Status == models.StatusInProgress {
		approval, err := e.findPendingApproval(ctx, client, pipelineName)
		if err != nil {
			e.logger.Error().Err(err).Str("pipeline", pipelineName).Msg("Failed to fetch pipeline state")
			return status
		}
		executions[0].PendingApproval = approval
	}

	status.Executions = executions
	return status
}

// findPendingApproval scans the pipeline's stage state for the first
// in-progress action carrying an approval token. No such action means no
// approval is pending, which is not an error.
func (e *Engine) findPendingApproval(ctx context.Context, client awsclient.PipelineAPI, pipelineName string) (*models.PendingApproval, error) {
	callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()

	out, err := client.GetPipelineState(callCtx, &codepipeline.GetPipelineStateInput{
		Name: aws.String(pipelineName),
	})
	if err != nil {
		return nil, err
	}

	for _, stage := range out.StageStates {
		for _, action := range stage.ActionStates {
			latest := action.LatestExecution
			if latest == nil || latest.Status != types.ActionExecutionStatusInProgress {
				continue
			}
			if latest.Token == nil || *latest.Token == "" {
				continue
			}
			return &models.PendingApproval{
				PipelineName: pipelineName,
				StageName:    aws.ToString(stage.StageName),
				ActionName:   aws.ToString(action.ActionName),
				Token:        *latest.Token,
			}, nil
		}
	}
	return nil, nil
}

func mapExecution(summary types.PipelineExecutionSummary) models.PipelineExecutionSummary {
	execution := models.PipelineExecutionSummary{
		ExecutionID: aws.ToString(summary.PipelineExecutionId),
		Status:      models.ParseExecutionStatus(string(summary.Status)),
	}
	if summary.StartTime != nil {
		t := summary.StartTime.UTC()
		execution.StartTime = &t
	}
	if summary.LastUpdateTime != nil {
		t := summary.LastUpdateTime.UTC()
		execution.LastUpdateTime = &t
	}
	return execution
}
