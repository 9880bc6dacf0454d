package provision

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/appsync/types"
	"github.com/stackmesh/appsyncctl/internal/compiler"
)

// datasourceConfig maps a declared datasource onto the SDK type and the
// kind-specific config block. Exactly one config is non-nil for table,
// function, and http kinds; none for the NONE kind.
func datasourceConfig(ds compiler.Datasource, settings Settings) (types.DataSourceType, *types.DynamodbDataSourceConfig, *types.LambdaDataSourceConfig, *types.HttpDataSourceConfig, error) {
	switch ds.Kind {
	case compiler.DatasourceTable:
		if settings.DatasourceRoleARN == "" {
			return "", nil, nil, nil, fmt.Errorf("datasource %s: datasource role ARN is required for table datasources", ds.Name)
		}
		tableName, region, err := parseTableARN(ds.BackendLocator)
		if err != nil {
			return "", nil, nil, nil, fmt.Errorf("datasource %s: %w", ds.Name, err)
		}
		return types.DataSourceTypeAmazonDynamodb, &types.DynamodbDataSourceConfig{
			TableName: aws.String(tableName),
			AwsRegion: aws.String(region),
		}, nil, nil, nil

	case compiler.DatasourceFunction:
		if settings.DatasourceRoleARN == "" {
			return "", nil, nil, nil, fmt.Errorf("datasource %s: datasource role ARN is required for function datasources", ds.Name)
		}
		return types.DataSourceTypeAwsLambda, nil, &types.LambdaDataSourceConfig{
			LambdaFunctionArn: aws.String(ds.BackendLocator),
		}, nil, nil

	case compiler.DatasourceHTTP:
		return types.DataSourceTypeHttp, nil, nil, &types.HttpDataSourceConfig{
			Endpoint: aws.String(ds.BackendLocator),
		}, nil

	case compiler.DatasourceNone:
		return types.DataSourceTypeNone, nil, nil, nil, nil

	default:
		return "", nil, nil, nil, fmt.Errorf("datasource %s: unsupported kind %q", ds.Name, ds.Kind)
	}
}

// parseTableARN extracts the table name and region from a DynamoDB table
// ARN: arn:aws:dynamodb:{region}:{account}:table/{name}.
func parseTableARN(arn string) (tableName, region string, err error) {
	parts := strings.Split(arn, ":")
	if len(parts) != 6 || parts[2] != "dynamodb" {
		return "", "", fmt.Errorf("invalid DynamoDB table ARN: %s", arn)
	}
	resource := parts[5]
	if !strings.HasPrefix(resource, "table/") {
		return "", "", fmt.Errorf("invalid DynamoDB table ARN: %s", arn)
	}
	return strings.TrimPrefix(resource, "table/"), parts[3], nil
}

// splitField parses the "Type.field" form a resolver targets.
func splitField(fieldType string) (typeName, fieldName string, err error) {
	parts := strings.SplitN(fieldType, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid field %q, expected Type.field", fieldType)
	}
	return parts[0], parts[1], nil
}
