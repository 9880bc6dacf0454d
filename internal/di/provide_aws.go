package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/appsync"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stackmesh/appsyncctl/internal/provision"
	"github.com/stackmesh/appsyncctl/internal/services"
)

func ProvideAWSConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

func ProvideAppSyncClient(config aws.Config) *appsync.Client {
	return appsync.NewFromConfig(config)
}

func ProvideIAMClient(config aws.Config) *iam.Client {
	return iam.NewFromConfig(config)
}

func ProvideSTSClient(config aws.Config) *sts.Client {
	return sts.NewFromConfig(config)
}

func ProvideIAMService(iamClient *iam.Client, stsClient *sts.Client) *services.IAMService {
	return services.NewIAMService(iamClient, stsClient)
}

func ProvideProvisioner(client *appsync.Client) provision.Provisioner {
	return provision.NewAppSyncProvisioner(client)
}
