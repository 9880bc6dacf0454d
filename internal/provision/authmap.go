package provision

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/appsync/types"
	"github.com/stackmesh/appsyncctl/internal/compiler"
)

// primaryAuth maps the composed primary block onto the top-level
// authentication fields of a Create/UpdateGraphqlApi call. Only the config
// matching the mechanism is non-nil.
func primaryAuth(auth compiler.AuthConfig) (types.AuthenticationType, *types.UserPoolConfig, *types.OpenIDConnectConfig, *types.LambdaAuthorizerConfig, error) {
	if auth.Primary == nil {
		return "", nil, nil, nil, fmt.Errorf("graph has no primary auth mechanism")
	}

	switch auth.Primary.Type {
	case compiler.AuthAPIKey:
		return types.AuthenticationTypeApiKey, nil, nil, nil, nil
	case compiler.AuthIAM:
		return types.AuthenticationTypeAwsIam, nil, nil, nil, nil
	case compiler.AuthCognito:
		return types.AuthenticationTypeAmazonCognitoUserPools, userPoolConfig(auth.Primary.Cognito), nil, nil, nil
	case compiler.AuthOIDC:
		return types.AuthenticationTypeOpenidConnect, nil, openIDConfig(auth.Primary.OpenIDConnect), nil, nil
	case compiler.AuthLambda:
		return types.AuthenticationTypeAwsLambda, nil, nil, lambdaConfig(auth.Primary.Lambda), nil
	default:
		return "", nil, nil, nil, fmt.Errorf("unsupported primary auth mechanism %q", auth.Primary.Type)
	}
}

// additionalProviders maps the composed additional blocks onto AppSync
// additional authentication providers, preserving declared order. The SDK's
// additional-provider Cognito shape (CognitoUserPoolConfig) carries no
// default action, matching the composed block.
func additionalProviders(auth compiler.AuthConfig) []types.AdditionalAuthenticationProvider {
	providers := make([]types.AdditionalAuthenticationProvider, 0, len(auth.Additional))
	for _, block := range auth.Additional {
		provider := types.AdditionalAuthenticationProvider{}
		switch block.Type {
		case compiler.AuthAPIKey:
			provider.AuthenticationType = types.AuthenticationTypeApiKey
		case compiler.AuthIAM:
			provider.AuthenticationType = types.AuthenticationTypeAwsIam
		case compiler.AuthCognito:
			provider.AuthenticationType = types.AuthenticationTypeAmazonCognitoUserPools
			provider.UserPoolConfig = cognitoUserPoolConfig(block.Cognito)
		case compiler.AuthOIDC:
			provider.AuthenticationType = types.AuthenticationTypeOpenidConnect
			provider.OpenIDConnectConfig = openIDConfig(block.OpenIDConnect)
		case compiler.AuthLambda:
			provider.AuthenticationType = types.AuthenticationTypeAwsLambda
			provider.LambdaAuthorizerConfig = lambdaConfig(block.Lambda)
		}
		providers = append(providers, provider)
	}
	return providers
}

func userPoolConfig(cognito *compiler.CognitoConfig) *types.UserPoolConfig {
	if cognito == nil {
		return nil
	}
	config := &types.UserPoolConfig{
		UserPoolId:    aws.String(cognito.UserPoolID),
		DefaultAction: types.DefaultActionAllow,
	}
	if cognito.DefaultAction == "DENY" {
		config.DefaultAction = types.DefaultActionDeny
	}
	if cognito.AWSRegion != "" {
		config.AwsRegion = aws.String(cognito.AWSRegion)
	}
	if cognito.AppIDClientRegex != "" {
		config.AppIdClientRegex = aws.String(cognito.AppIDClientRegex)
	}
	return config
}

func cognitoUserPoolConfig(cognito *compiler.CognitoConfig) *types.CognitoUserPoolConfig {
	if cognito == nil {
		return nil
	}
	config := &types.CognitoUserPoolConfig{
		UserPoolId: aws.String(cognito.UserPoolID),
	}
	if cognito.AWSRegion != "" {
		config.AwsRegion = aws.String(cognito.AWSRegion)
	}
	if cognito.AppIDClientRegex != "" {
		config.AppIdClientRegex = aws.String(cognito.AppIDClientRegex)
	}
	return config
}

func openIDConfig(oidc *compiler.OpenIDConnectConfig) *types.OpenIDConnectConfig {
	if oidc == nil {
		return nil
	}
	config := &types.OpenIDConnectConfig{
		Issuer:  aws.String(oidc.Issuer),
		AuthTTL: oidc.AuthTTL,
		IatTTL:  oidc.IatTTL,
	}
	if oidc.ClientID != "" {
		config.ClientId = aws.String(oidc.ClientID)
	}
	return config
}

func lambdaConfig(lambda *compiler.LambdaAuthorizerConfig) *types.LambdaAuthorizerConfig {
	if lambda == nil {
		return nil
	}
	config := &types.LambdaAuthorizerConfig{
		AuthorizerUri:                aws.String(lambda.AuthorizerURI),
		AuthorizerResultTtlInSeconds: lambda.ResultTTLSeconds,
	}
	if lambda.IdentityValidationExpression != "" {
		config.IdentityValidationExpression = aws.String(lambda.IdentityValidationExpression)
	}
	return config
}
