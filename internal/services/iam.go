package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// IAMService ensures the service roles AppSync assumes on the API's behalf:
// one for pushing field logs to CloudWatch, one for calling datasource
// backends.
type IAMService struct {
	client    *iam.Client
	stsClient *sts.Client
}

func NewIAMService(iamClient *iam.Client, stsClient *sts.Client) *IAMService {
	return &IAMService{
		client:    iamClient,
		stsClient: stsClient,
	}
}

const (
	appsyncAssumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "appsync.amazonaws.com"},
      "Action": "sts:AssumeRole"
    }
  ]
}`

	cloudWatchLogsPolicyARN = "arn:aws:iam::aws:policy/service-role/AWSAppSyncPushToCloudWatchLogs"
)

// GetAWSAccountID retrieves the AWS account ID
func (s *IAMService) GetAWSAccountID(ctx context.Context) (string, error) {
	result, err := s.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}

	if result.Account == nil {
		return "", fmt.Errorf("account ID is nil")
	}

	return *result.Account, nil
}

// EnsureLoggingRole ensures the CloudWatch logging role for the named API
// exists and returns its ARN. The role trusts appsync.amazonaws.com and
// carries the managed push-to-CloudWatch policy.
func (s *IAMService) EnsureLoggingRole(ctx context.Context, apiName string) (string, error) {
	roleName := fmt.Sprintf("appsyncctl-%s-logs", sanitizeRoleName(apiName))

	existing, err := s.client.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	})
	if err == nil {
		return aws.ToString(existing.Role.Arn), nil
	}

	var noSuchEntity *types.NoSuchEntityException
	if !errors.As(err, &noSuchEntity) {
		return "", fmt.Errorf("failed to check logging role: %w", err)
	}

	created, err := s.client.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(appsyncAssumeRolePolicy),
		Description:              aws.String(fmt.Sprintf("CloudWatch logging role for AppSync API %s", apiName)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create logging role: %w", err)
	}

	_, err = s.client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(cloudWatchLogsPolicyARN),
	})
	if err != nil {
		return "", fmt.Errorf("failed to attach logging policy: %w", err)
	}

	return aws.ToString(created.Role.Arn), nil
}

// sanitizeRoleName keeps the role name within IAM's allowed character set.
func sanitizeRoleName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return sb.String()
}
