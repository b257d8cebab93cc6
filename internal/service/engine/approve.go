package engine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	"pipewatch/internal/models"
)

const approvalSummary = "Approved via pipewatch"

// ApprovalError is a remote rejection of an approval decision, typically a
// token already consumed or expired.
type ApprovalError struct {
	Pipeline string
	Err      error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("approval for pipeline %s rejected: %v", e.Pipeline, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

// Approve submits an "Approved" decision for one pending manual-approval
// action. Refreshing the snapshot afterwards is the caller's concern; a
// cycle failure after a successful approval is not an approval failure.
func (e *Engine) Approve(ctx context.Context, approval models.PendingApproval) error {
	settings, err := e.store.GetSettings()
	if err != nil {
		return err
	}

	credential, err := e.resolver.Resolve(ctx, settings)
	if err != nil {
		return err
	}

	client, err := e.clients.NewClient(ctx, credential, settings.Region)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()

	_, err = client.PutApprovalResult(callCtx, &codepipeline.PutApprovalResultInput{
		PipelineName: aws.String(approval.PipelineName),
		StageName:    aws.String(approval.StageName),
		ActionName:   aws.String(approval.ActionName),
		Token:        aws.String(approval.Token),
		Result: &types.ApprovalResult{
			Status:  types.ApprovalStatusApproved,
			Summary: aws.String(approvalSummary),
		},
	})
	if err != nil {
		e.logger.Error().Err(err).Str("pipeline", approval.PipelineName).Msg("Approval rejected")
		return &ApprovalError{Pipeline: approval.PipelineName, Err: err}
	}

	e.logger.Info().
		Str("pipeline", approval.PipelineName).
		Str("stage", approval.StageName).
		Str("action", approval.ActionName).
		Msg("Approval submitted")
	return nil
}
