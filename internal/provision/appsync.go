package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/appsync"
	"github.com/aws/aws-sdk-go-v2/service/appsync/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stackmesh/appsyncctl/internal/compiler"
)

const functionVersion = "2018-05-29"

// schemaPollInterval is how often schema creation status is checked.
var schemaPollInterval = 2 * time.Second

// AppSyncProvisioner applies a resolved graph to AWS AppSync. Every
// resource write is an idempotent upsert, so re-applying an unchanged
// graph converges without error.
type AppSyncProvisioner struct {
	client *appsync.Client
}

// NewAppSyncProvisioner creates a provisioner over an AppSync client.
func NewAppSyncProvisioner(client *appsync.Client) *AppSyncProvisioner {
	return &AppSyncProvisioner{client: client}
}

// Apply provisions the API, schema, datasources, functions, resolvers, and
// custom domain described by the graph, in that order. Functions are
// created before pipeline resolvers so pipeline configs can reference their
// AppSync function IDs in declared execution order.
func (p *AppSyncProvisioner) Apply(ctx context.Context, graph *compiler.Graph, settings Settings) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("run_id", settings.RunID).Str("api", settings.APIName).Logger()

	api, err := p.ensureAPI(ctx, graph, settings)
	if err != nil {
		return nil, err
	}
	apiID := aws.ToString(api.ApiId)
	logger.Info().Str("api_id", apiID).Msg("API provisioned")

	if settings.Schema != "" {
		if err := p.applySchema(ctx, apiID, settings.Schema); err != nil {
			return nil, err
		}
		logger.Info().Msg("Schema applied")
	}

	for _, ds := range graph.Datasources {
		if err := p.upsertDatasource(ctx, apiID, ds, settings); err != nil {
			return nil, err
		}
		logger.Info().Str("datasource", ds.Name).Str("kind", string(ds.Kind)).Msg("Datasource provisioned")
	}

	functionIDs, err := p.upsertFunctions(ctx, apiID, graph.Functions)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("count", len(functionIDs)).Msg("Functions provisioned")

	for _, rs := range graph.UnitResolvers {
		if err := p.upsertUnitResolver(ctx, apiID, rs); err != nil {
			return nil, err
		}
	}

	for _, rs := range graph.PipelineResolvers {
		if err := p.upsertPipelineResolver(ctx, apiID, rs, functionIDs); err != nil {
			return nil, err
		}
	}
	logger.Info().
		Int("unit", len(graph.UnitResolvers)).
		Int("pipeline", len(graph.PipelineResolvers)).
		Msg("Resolvers provisioned")

	if settings.Domain != nil {
		if err := p.associateDomain(ctx, apiID, *settings.Domain); err != nil {
			return nil, err
		}
		logger.Info().Str("domain", settings.Domain.DomainName).Msg("Custom domain associated")
	}

	return &Result{
		APIID:       apiID,
		APIARN:      aws.ToString(api.Arn),
		URIs:        api.Uris,
		FunctionIDs: functionIDs,
	}, nil
}

// ensureAPI finds the API by name and updates it, or creates it if absent.
// The composed auth configuration and logging settings are applied on both
// paths.
func (p *AppSyncProvisioner) ensureAPI(ctx context.Context, graph *compiler.Graph, settings Settings) (*types.GraphqlApi, error) {
	authType, userPool, openIDConnect, lambdaAuthorizer, err := primaryAuth(graph.Auth)
	if err != nil {
		return nil, err
	}
	additional := additionalProviders(graph.Auth)
	logCfg := logConfig(settings.Logging)

	existing, err := p.findAPI(ctx, settings.APIName)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		out, err := p.client.UpdateGraphqlApi(ctx, &appsync.UpdateGraphqlApiInput{
			ApiId:                             existing.ApiId,
			Name:                              aws.String(settings.APIName),
			AuthenticationType:                authType,
			UserPoolConfig:                    userPool,
			OpenIDConnectConfig:               openIDConnect,
			LambdaAuthorizerConfig:            lambdaAuthorizer,
			AdditionalAuthenticationProviders: additional,
			LogConfig:                         logCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update API %s: %w", settings.APIName, err)
		}
		return out.GraphqlApi, nil
	}

	out, err := p.client.CreateGraphqlApi(ctx, &appsync.CreateGraphqlApiInput{
		Name:                              aws.String(settings.APIName),
		AuthenticationType:                authType,
		UserPoolConfig:                    userPool,
		OpenIDConnectConfig:               openIDConnect,
		LambdaAuthorizerConfig:            lambdaAuthorizer,
		AdditionalAuthenticationProviders: additional,
		LogConfig:                         logCfg,
		Tags:                              map[string]string{"env": settings.Env},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API %s: %w", settings.APIName, err)
	}
	return out.GraphqlApi, nil
}

// findAPI returns the GraphQL API with the given name, or nil if none
// exists.
func (p *AppSyncProvisioner) findAPI(ctx context.Context, name string) (*types.GraphqlApi, error) {
	paginator := appsync.NewListGraphqlApisPaginator(p.client, &appsync.ListGraphqlApisInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list APIs: %w", err)
		}
		for i := range page.GraphqlApis {
			if aws.ToString(page.GraphqlApis[i].Name) == name {
				return &page.GraphqlApis[i], nil
			}
		}
	}
	return nil, nil
}

// applySchema starts schema creation from the opaque SDL text and polls
// until AppSync finishes processing it.
func (p *AppSyncProvisioner) applySchema(ctx context.Context, apiID, schema string) error {
	_, err := p.client.StartSchemaCreation(ctx, &appsync.StartSchemaCreationInput{
		ApiId:      aws.String(apiID),
		Definition: []byte(schema),
	})
	if err != nil {
		return fmt.Errorf("failed to start schema creation: %w", err)
	}

	for {
		status, err := p.client.GetSchemaCreationStatus(ctx, &appsync.GetSchemaCreationStatusInput{
			ApiId: aws.String(apiID),
		})
		if err != nil {
			return fmt.Errorf("failed to get schema creation status: %w", err)
		}

		switch status.Status {
		case types.SchemaStatusSuccess, types.SchemaStatusActive:
			return nil
		case types.SchemaStatusFailed:
			return fmt.Errorf("schema creation failed: %s", aws.ToString(status.Details))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(schemaPollInterval):
		}
	}
}

// upsertDatasource creates or updates one datasource.
func (p *AppSyncProvisioner) upsertDatasource(ctx context.Context, apiID string, ds compiler.Datasource, settings Settings) error {
	dsType, dynamodb, lambda, http, err := datasourceConfig(ds, settings)
	if err != nil {
		return err
	}

	var serviceRole *string
	if ds.Kind == compiler.DatasourceTable || ds.Kind == compiler.DatasourceFunction {
		serviceRole = aws.String(settings.DatasourceRoleARN)
	}

	_, err = p.client.GetDataSource(ctx, &appsync.GetDataSourceInput{
		ApiId: aws.String(apiID),
		Name:  aws.String(ds.Name),
	})
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to get datasource %s: %w", ds.Name, err)
		}
		_, err = p.client.CreateDataSource(ctx, &appsync.CreateDataSourceInput{
			ApiId:          aws.String(apiID),
			Name:           aws.String(ds.Name),
			Type:           dsType,
			ServiceRoleArn: serviceRole,
			DynamodbConfig: dynamodb,
			LambdaConfig:   lambda,
			HttpConfig:     http,
		})
		if err != nil {
			return fmt.Errorf("failed to create datasource %s: %w", ds.Name, err)
		}
		return nil
	}

	_, err = p.client.UpdateDataSource(ctx, &appsync.UpdateDataSourceInput{
		ApiId:          aws.String(apiID),
		Name:           aws.String(ds.Name),
		Type:           dsType,
		ServiceRoleArn: serviceRole,
		DynamodbConfig: dynamodb,
		LambdaConfig:   lambda,
		HttpConfig:     http,
	})
	if err != nil {
		return fmt.Errorf("failed to update datasource %s: %w", ds.Name, err)
	}
	return nil
}

// upsertFunctions creates or updates every resolved function and returns
// the declared-key to AppSync-function-ID mapping pipeline resolvers need.
func (p *AppSyncProvisioner) upsertFunctions(ctx context.Context, apiID string, functions []compiler.ResolvedFunction) (map[string]string, error) {
	existing, err := p.listFunctions(ctx, apiID)
	if err != nil {
		return nil, err
	}

	functionIDs := make(map[string]string, len(functions))
	for _, fn := range functions {
		if current, ok := existing[fn.Name]; ok {
			out, err := p.client.UpdateFunction(ctx, &appsync.UpdateFunctionInput{
				ApiId:                   aws.String(apiID),
				FunctionId:              current.FunctionId,
				Name:                    aws.String(fn.Name),
				DataSourceName:          aws.String(fn.Datasource.Name),
				FunctionVersion:         aws.String(functionVersion),
				RequestMappingTemplate:  optionalTemplate(fn.RequestTemplate),
				ResponseMappingTemplate: optionalTemplate(fn.ResponseTemplate),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to update function %s: %w", fn.Key, err)
			}
			functionIDs[fn.Key] = aws.ToString(out.FunctionConfiguration.FunctionId)
			continue
		}

		out, err := p.client.CreateFunction(ctx, &appsync.CreateFunctionInput{
			ApiId:                   aws.String(apiID),
			Name:                    aws.String(fn.Name),
			DataSourceName:          aws.String(fn.Datasource.Name),
			FunctionVersion:         aws.String(functionVersion),
			RequestMappingTemplate:  optionalTemplate(fn.RequestTemplate),
			ResponseMappingTemplate: optionalTemplate(fn.ResponseTemplate),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create function %s: %w", fn.Key, err)
		}
		functionIDs[fn.Key] = aws.ToString(out.FunctionConfiguration.FunctionId)
	}
	return functionIDs, nil
}

// listFunctions returns the API's existing functions keyed by name.
func (p *AppSyncProvisioner) listFunctions(ctx context.Context, apiID string) (map[string]types.FunctionConfiguration, error) {
	functions := make(map[string]types.FunctionConfiguration)
	paginator := appsync.NewListFunctionsPaginator(p.client, &appsync.ListFunctionsInput{
		ApiId: aws.String(apiID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		for _, fn := range page.Functions {
			functions[aws.ToString(fn.Name)] = fn
		}
	}
	return functions, nil
}

func (p *AppSyncProvisioner) upsertUnitResolver(ctx context.Context, apiID string, rs compiler.ResolvedUnitResolver) error {
	typeName, fieldName, err := splitField(rs.FieldType)
	if err != nil {
		return fmt.Errorf("resolver %s: %w", rs.Key, err)
	}

	return p.upsertResolver(ctx, resolverSpec{
		apiID:            apiID,
		key:              rs.Key,
		typeName:         typeName,
		fieldName:        fieldName,
		kind:             types.ResolverKindUnit,
		datasourceName:   aws.String(rs.Datasource.Name),
		requestTemplate:  rs.RequestTemplate,
		responseTemplate: rs.ResponseTemplate,
	})
}

func (p *AppSyncProvisioner) upsertPipelineResolver(ctx context.Context, apiID string, rs compiler.ResolvedPipelineResolver, functionIDs map[string]string) error {
	typeName, fieldName, err := splitField(rs.FieldType)
	if err != nil {
		return fmt.Errorf("resolver %s: %w", rs.Key, err)
	}

	// Execution order is the declared handle order, bit for bit.
	ids := make([]string, 0, len(rs.Functions))
	for _, fn := range rs.Functions {
		id, ok := functionIDs[fn.Key]
		if !ok {
			return fmt.Errorf("resolver %s: function %s was not provisioned", rs.Key, fn.Key)
		}
		ids = append(ids, id)
	}

	return p.upsertResolver(ctx, resolverSpec{
		apiID:            apiID,
		key:              rs.Key,
		typeName:         typeName,
		fieldName:        fieldName,
		kind:             types.ResolverKindPipeline,
		pipeline:         &types.PipelineConfig{Functions: ids},
		requestTemplate:  rs.RequestTemplate,
		responseTemplate: rs.ResponseTemplate,
	})
}

type resolverSpec struct {
	apiID            string
	key              string
	typeName         string
	fieldName        string
	kind             types.ResolverKind
	datasourceName   *string
	pipeline         *types.PipelineConfig
	requestTemplate  string
	responseTemplate string
}

func (p *AppSyncProvisioner) upsertResolver(ctx context.Context, spec resolverSpec) error {
	_, err := p.client.GetResolver(ctx, &appsync.GetResolverInput{
		ApiId:     aws.String(spec.apiID),
		TypeName:  aws.String(spec.typeName),
		FieldName: aws.String(spec.fieldName),
	})
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to get resolver %s: %w", spec.key, err)
		}
		_, err = p.client.CreateResolver(ctx, &appsync.CreateResolverInput{
			ApiId:                   aws.String(spec.apiID),
			TypeName:                aws.String(spec.typeName),
			FieldName:               aws.String(spec.fieldName),
			Kind:                    spec.kind,
			DataSourceName:          spec.datasourceName,
			PipelineConfig:          spec.pipeline,
			RequestMappingTemplate:  optionalTemplate(spec.requestTemplate),
			ResponseMappingTemplate: optionalTemplate(spec.responseTemplate),
		})
		if err != nil {
			return fmt.Errorf("failed to create resolver %s: %w", spec.key, err)
		}
		return nil
	}

	_, err = p.client.UpdateResolver(ctx, &appsync.UpdateResolverInput{
		ApiId:                   aws.String(spec.apiID),
		TypeName:                aws.String(spec.typeName),
		FieldName:               aws.String(spec.fieldName),
		Kind:                    spec.kind,
		DataSourceName:          spec.datasourceName,
		PipelineConfig:          spec.pipeline,
		RequestMappingTemplate:  optionalTemplate(spec.requestTemplate),
		ResponseMappingTemplate: optionalTemplate(spec.responseTemplate),
	})
	if err != nil {
		return fmt.Errorf("failed to update resolver %s: %w", spec.key, err)
	}
	return nil
}

// associateDomain ensures the custom domain exists and is associated with
// the API.
func (p *AppSyncProvisioner) associateDomain(ctx context.Context, apiID string, domain DomainSettings) error {
	_, err := p.client.GetDomainName(ctx, &appsync.GetDomainNameInput{
		DomainName: aws.String(domain.DomainName),
	})
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to get domain %s: %w", domain.DomainName, err)
		}
		_, err = p.client.CreateDomainName(ctx, &appsync.CreateDomainNameInput{
			DomainName:     aws.String(domain.DomainName),
			CertificateArn: aws.String(domain.CertificateARN),
		})
		if err != nil {
			return fmt.Errorf("failed to create domain %s: %w", domain.DomainName, err)
		}
	}

	_, err = p.client.AssociateApi(ctx, &appsync.AssociateApiInput{
		ApiId:      aws.String(apiID),
		DomainName: aws.String(domain.DomainName),
	})
	if err != nil {
		return fmt.Errorf("failed to associate domain %s: %w", domain.DomainName, err)
	}
	return nil
}

// logConfig maps the logging settings onto the SDK shape; nil disables
// logging.
func logConfig(logging *LoggingSettings) *types.LogConfig {
	if logging == nil {
		return nil
	}
	level := types.FieldLogLevelNone
	switch logging.FieldLogLevel {
	case "ERROR":
		level = types.FieldLogLevelError
	case "ALL":
		level = types.FieldLogLevelAll
	}
	return &types.LogConfig{
		CloudWatchLogsRoleArn: aws.String(logging.ServiceRoleARN),
		FieldLogLevel:         level,
		ExcludeVerboseContent: logging.ExcludeVerboseContent,
	}
}

func optionalTemplate(template string) *string {
	if template == "" {
		return nil
	}
	return aws.String(template)
}

func isNotFound(err error) bool {
	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFoundException"
}
