package provision

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/appsync/types"
	"github.com/stackmesh/appsyncctl/internal/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasourceConfig(t *testing.T) {
	settings := Settings{DatasourceRoleARN: "arn:aws:iam::123456789012:role/appsync-datasource"}

	t.Run("table", func(t *testing.T) {
		ds := compiler.Datasource{
			Name:           "orders_table",
			Kind:           compiler.DatasourceTable,
			BackendLocator: "arn:aws:dynamodb:us-west-2:123456789012:table/orders",
		}
		dsType, dynamodb, lambda, http, err := datasourceConfig(ds, settings)
		require.NoError(t, err)
		assert.Equal(t, types.DataSourceTypeAmazonDynamodb, dsType)
		require.NotNil(t, dynamodb)
		assert.Equal(t, "orders", aws.ToString(dynamodb.TableName))
		assert.Equal(t, "us-west-2", aws.ToString(dynamodb.AwsRegion))
		assert.Nil(t, lambda)
		assert.Nil(t, http)
	})

	t.Run("function", func(t *testing.T) {
		ds := compiler.Datasource{
			Name:           "pricing",
			Kind:           compiler.DatasourceFunction,
			BackendLocator: "arn:aws:lambda:us-west-2:123456789012:function:pricing",
		}
		dsType, _, lambda, _, err := datasourceConfig(ds, settings)
		require.NoError(t, err)
		assert.Equal(t, types.DataSourceTypeAwsLambda, dsType)
		require.NotNil(t, lambda)
		assert.Equal(t, ds.BackendLocator, aws.ToString(lambda.LambdaFunctionArn))
	})

	t.Run("http", func(t *testing.T) {
		ds := compiler.Datasource{
			Name:           "pricing_api",
			Kind:           compiler.DatasourceHTTP,
			BackendLocator: "https://pricing.example.com",
		}
		dsType, _, _, http, err := datasourceConfig(ds, Settings{})
		require.NoError(t, err)
		assert.Equal(t, types.DataSourceTypeHttp, dsType)
		require.NotNil(t, http)
		assert.Equal(t, "https://pricing.example.com", aws.ToString(http.Endpoint))
	})

	t.Run("none", func(t *testing.T) {
		ds := compiler.Datasource{Name: "noop", Kind: compiler.DatasourceNone}
		dsType, dynamodb, lambda, http, err := datasourceConfig(ds, Settings{})
		require.NoError(t, err)
		assert.Equal(t, types.DataSourceTypeNone, dsType)
		assert.Nil(t, dynamodb)
		assert.Nil(t, lambda)
		assert.Nil(t, http)
	})

	t.Run("table without role", func(t *testing.T) {
		ds := compiler.Datasource{
			Name:           "orders_table",
			Kind:           compiler.DatasourceTable,
			BackendLocator: "arn:aws:dynamodb:us-west-2:123456789012:table/orders",
		}
		_, _, _, _, err := datasourceConfig(ds, Settings{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "role ARN is required")
	})

	t.Run("unsupported kind", func(t *testing.T) {
		ds := compiler.Datasource{Name: "weird", Kind: compiler.DatasourceKind("graph")}
		_, _, _, _, err := datasourceConfig(ds, Settings{})
		assert.Error(t, err)
	})
}

func TestParseTableARN(t *testing.T) {
	tests := []struct {
		arn        string
		wantTable  string
		wantRegion string
		wantErr    bool
	}{
		{arn: "arn:aws:dynamodb:us-west-2:123456789012:table/orders", wantTable: "orders", wantRegion: "us-west-2"},
		{arn: "arn:aws:dynamodb:eu-central-1:123456789012:table/dev-orders--items", wantTable: "dev-orders--items", wantRegion: "eu-central-1"},
		{arn: "arn:aws:s3:::my-bucket", wantErr: true},
		{arn: "arn:aws:dynamodb:us-west-2:123456789012:index/orders", wantErr: true},
		{arn: "orders", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.arn, func(t *testing.T) {
			table, region, err := parseTableARN(tc.arn)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantTable, table)
			assert.Equal(t, tc.wantRegion, region)
		})
	}
}

func TestSplitField(t *testing.T) {
	typeName, fieldName, err := splitField("Query.getOrder")
	require.NoError(t, err)
	assert.Equal(t, "Query", typeName)
	assert.Equal(t, "getOrder", fieldName)

	for _, bad := range []string{"Query", "Query.", ".getOrder", ""} {
		_, _, err := splitField(bad)
		assert.Error(t, err, bad)
	}
}

func TestLogConfig(t *testing.T) {
	assert.Nil(t, logConfig(nil))

	config := logConfig(&LoggingSettings{
		FieldLogLevel:         "ERROR",
		ExcludeVerboseContent: true,
		ServiceRoleARN:        "arn:aws:iam::123456789012:role/appsync-logs",
	})
	require.NotNil(t, config)
	assert.Equal(t, types.FieldLogLevelError, config.FieldLogLevel)
	assert.True(t, config.ExcludeVerboseContent)
	assert.Equal(t, "arn:aws:iam::123456789012:role/appsync-logs", aws.ToString(config.CloudWatchLogsRoleArn))
}
