package awsclient

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/sony/gobreaker"

	"pipewatch/pkg/log"
)

// breaker guards all CodePipeline calls with a shared circuit breaker. It
// adds no retries, so each call remains a single attempt; when the breaker
// is open the call fails fast and surfaces through the normal per-pipeline
// or per-cycle failure paths.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker() *breaker {
	logger := log.Logger.With().Str("component", "codepipeline_breaker").Logger()
	return &breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "codepipeline",
			MaxRequests: 1,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		}),
	}
}

func (b *breaker) wrap(api PipelineAPI) PipelineAPI {
	return &breakerClient{api: api, cb: b.cb}
}

type breakerClient struct {
	api PipelineAPI
	cb  *gobreaker.CircuitBreaker
}

func (c *breakerClient) ListPipelines(ctx context.Context, params *codepipeline.ListPipelinesInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListPipelinesOutput, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.api.ListPipelines(ctx, params, optFns...)
	})
	if err != nil {
		return nil, err
	}
	return out.(*codepipeline.ListPipelinesOutput), nil
}

func (c *breakerClient) ListPipelineExecutions(ctx context.Context, params *codepipeline.ListPipelineExecutionsInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListPipelineExecutionsOutput, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.api.ListPipelineExecutions(ctx, params, optFns...)
	})
	if err != nil {
		return nil, err
	}
	return out.(*codepipeline.ListPipelineExecutionsOutput), nil
}

func (c *breakerClient) GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.api.GetPipelineState(ctx, params, optFns...)
	})
	if err != nil {
		return nil, err
	}
	return out.(*codepipeline.GetPipelineStateOutput), nil
}

func (c *breakerClient) PutApprovalResult(ctx context.Context, params *codepipeline.PutApprovalResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutApprovalResultOutput, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.api.PutApprovalResult(ctx, params, optFns...)
	})
	if err != nil {
		return nil, err
	}
	return out.(*codepipeline.PutApprovalResultOutput), nil
}
