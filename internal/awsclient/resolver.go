// Package awsclient resolves operator settings into authenticated
// CodePipeline clients, escalating a long-lived key pair to temporary role
// credentials when a role ARN is configured.
package awsclient

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"pipewatch/internal/models"
	"pipewatch/pkg/log"
)

const (
	roleSessionName = "pipewatch-session"

	assumeRoleTimeout = 15 * time.Second
)

type stsAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// ResolvedCredential is a ready-to-use credential for one cycle or one
// approval call. It is never persisted and never logged.
type ResolvedCredential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Resolver turns settings into an active credential.
type Resolver struct {
	logger zerolog.Logger
	newSTS func(ctx context.Context, region string, provider aws.CredentialsProvider) (stsAPI, error)
}

func NewResolver() *Resolver {
	return &Resolver{
		logger: log.Logger.With().Str("component", "credential_resolver").Logger(),
		newSTS: func(ctx context.Context, region string, provider aws.CredentialsProvider) (stsAPI, error) {
			cfg, err := config.LoadDefaultConfig(ctx,
				config.WithRegion(region),
				config.WithCredentialsProvider(provider),
			)
			if err != nil {
				return nil, err
			}
			return sts.NewFromConfig(cfg), nil
		},
	}
}

// Resolve returns the direct key pair, or the temporary triple obtained by
// assuming the configured role.
func (r *Resolver) Resolve(ctx context.Context, settings models.Settings) (ResolvedCredential, error) {
	if !settings.Configured() {
		return ResolvedCredential{}, ErrNotConfigured
	}

	direct := ResolvedCredential{
		AccessKeyID:     settings.AccessKeyID,
		SecretAccessKey: settings.SecretAccessKey,
	}
	if settings.RoleArn == "" {
		return direct, nil
	}

	provider := credentials.NewStaticCredentialsProvider(direct.AccessKeyID, direct.SecretAccessKey, "")
	svc, err := r.newSTS(ctx, settings.Region, provider)
	if err != nil {
		return ResolvedCredential{}, &CredentialExchangeError{RoleArn: settings.RoleArn, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, assumeRoleTimeout)
	defer cancel()

	out, err := svc.AssumeRole(callCtx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(settings.RoleArn),
		RoleSessionName: aws.String(roleSessionName),
	})
	if err != nil {
		return ResolvedCredential{}, &CredentialExchangeError{RoleArn: settings.RoleArn, Err: err}
	}

	temp, err := credentialFromAssumeRole(out)
	if err != nil {
		return ResolvedCredential{}, &CredentialExchangeError{RoleArn: settings.RoleArn, Err: err}
	}

	r.logger.Debug().Str("role_arn", settings.RoleArn).Msg("Assumed role for temporary credentials")
	return temp, nil
}

func credentialFromAssumeRole(out *sts.AssumeRoleOutput) (ResolvedCredential, error) {
	if out == nil || out.Credentials == nil {
		return ResolvedCredential{}, errors.New("response carries no credentials")
	}

	creds := out.Credentials
	if creds.AccessKeyId == nil || creds.SecretAccessKey == nil || creds.SessionToken == nil ||
		*creds.AccessKeyId == "" || *creds.SecretAccessKey == "" || *creds.SessionToken == "" {
		return ResolvedCredential{}, errors.New("response is missing part of the credential triple")
	}

	return ResolvedCredential{
		AccessKeyID:     *creds.AccessKeyId,
		SecretAccessKey: *creds.SecretAccessKey,
		SessionToken:    *creds.SessionToken,
	}, nil
}
