package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
)

// PipelineAPI is the slice of the CodePipeline surface the sync engine and
// the approval submitter consume.
type PipelineAPI interface {
	ListPipelines(ctx context.Context, params *codepipeline.ListPipelinesInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListPipelinesOutput, error)
	ListPipelineExecutions(ctx context.Context, params *codepipeline.ListPipelineExecutionsInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListPipelineExecutionsOutput, error)
	GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error)
	PutApprovalResult(ctx context.Context, params *codepipeline.PutApprovalResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutApprovalResultOutput, error)
}

// Factory builds PipelineAPI clients. It is created once per process so the
// circuit breaker state spans cycles.
type Factory struct {
	resolver *Resolver
	breaker  *breaker
}

func NewFactory() *Factory {
	return &Factory{
		resolver: NewResolver(),
		breaker:  newBreaker(),
	}
}

// Resolver exposes the credential resolver for callers that need credential
// errors classified without building a client.
func (f *Factory) Resolver() *Resolver {
	return f.resolver
}

// NewClient resolves credentials from settings and returns a
// breaker-protected CodePipeline client bound to the configured region.
func (f *Factory) NewClient(ctx context.Context, credential ResolvedCredential, region string) (PipelineAPI, error) {
	provider := credentials.NewStaticCredentialsProvider(
		credential.AccessKeyID,
		credential.SecretAccessKey,
		credential.SessionToken,
	)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(provider),
	)
	if err != nil {
		return nil, err
	}

	return f.breaker.wrap(codepipeline.NewFromConfig(cfg)), nil
}
