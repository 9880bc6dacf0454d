package compiler

import "errors"

// AuthType tags one of the five supported authentication mechanisms. The
// values match the AppSync authentication type identifiers.
type AuthType string

const (
	AuthAPIKey  AuthType = "API_KEY"
	AuthIAM     AuthType = "AWS_IAM"
	AuthCognito AuthType = "AMAZON_COGNITO_USER_POOLS"
	AuthOIDC    AuthType = "OPENID_CONNECT"
	AuthLambda  AuthType = "AWS_LAMBDA"
)

// supportedAuthTypes is the closed set of mechanisms the compiler accepts.
var supportedAuthTypes = map[AuthType]bool{
	AuthAPIKey:  true,
	AuthIAM:     true,
	AuthCognito: true,
	AuthOIDC:    true,
	AuthLambda:  true,
}

// OpenIDConnectConfig is the payload for the OPENID_CONNECT mechanism.
type OpenIDConnectConfig struct {
	Issuer   string `json:"issuer" yaml:"issuer"`
	ClientID string `json:"client_id,omitempty" yaml:"client_id"`
	AuthTTL  int64  `json:"auth_ttl,omitempty" yaml:"auth_ttl"`
	IatTTL   int64  `json:"iat_ttl,omitempty" yaml:"iat_ttl"`
}

// LambdaAuthorizerConfig is the payload for the AWS_LAMBDA mechanism.
type LambdaAuthorizerConfig struct {
	AuthorizerURI                string `json:"authorizer_uri" yaml:"authorizer_uri"`
	ResultTTLSeconds             int32  `json:"result_ttl_seconds,omitempty" yaml:"result_ttl_seconds"`
	IdentityValidationExpression string `json:"identity_validation_expression,omitempty" yaml:"identity_validation_expression"`
}

// CognitoConfig is the payload for the AMAZON_COGNITO_USER_POOLS mechanism.
// DefaultAction only applies when Cognito is the primary mechanism; the
// additional-provider shape omits it.
type CognitoConfig struct {
	UserPoolID       string `json:"user_pool_id" yaml:"user_pool_id"`
	AWSRegion        string `json:"aws_region,omitempty" yaml:"aws_region"`
	DefaultAction    string `json:"default_action,omitempty" yaml:"default_action"`
	AppIDClientRegex string `json:"app_id_client_regex,omitempty" yaml:"app_id_client_regex"`
}

// AuthPayloads carries at most one payload per mechanism type. A mechanism
// can appear only once in the type list, so one payload per type suffices
// regardless of primary or additional placement.
type AuthPayloads struct {
	OpenIDConnect *OpenIDConnectConfig
	Lambda        *LambdaAuthorizerConfig
	Cognito       *CognitoConfig
}

// AuthBlock is one composed provider configuration. Exactly one of the
// payload fields is set, determined by Type; API_KEY and AWS_IAM carry none.
type AuthBlock struct {
	Type          AuthType                `json:"type"`
	OpenIDConnect *OpenIDConnectConfig    `json:"openid_connect,omitempty"`
	Lambda        *LambdaAuthorizerConfig `json:"lambda_authorizer,omitempty"`
	Cognito       *CognitoConfig          `json:"cognito,omitempty"`
}

// AuthConfig is the composed authentication configuration for one API: the
// primary mechanism (first in the declared list) plus the remaining
// mechanisms as additional providers, in declared order.
type AuthConfig struct {
	Primary    *AuthBlock  `json:"primary"`
	Additional []AuthBlock `json:"additional,omitempty"`
}

// ComposeAuth turns an ordered mechanism list and its payloads into the
// primary block and the ordered additional-provider blocks. All invariant
// violations are accumulated rather than reported one at a time.
func ComposeAuth(types []AuthType, payloads AuthPayloads) (AuthConfig, []error) {
	var errs []error

	if len(types) == 0 {
		errs = append(errs, errors.New("authentication type list must name at least one mechanism"))
	}

	seen := make(map[AuthType]bool, len(types))
	for _, at := range types {
		if !supportedAuthTypes[at] {
			errs = append(errs, &UnsupportedMechanismError{Mechanism: string(at)})
			continue
		}
		if seen[at] {
			errs = append(errs, &DuplicateMechanismError{Mechanism: at})
			continue
		}
		seen[at] = true

		if !hasPayload(at, payloads) {
			errs = append(errs, &MissingPayloadError{Mechanism: at})
		}
	}

	if len(errs) > 0 {
		return AuthConfig{}, errs
	}

	config := AuthConfig{
		Primary: buildBlock(types[0], payloads, true),
	}
	for _, at := range types[1:] {
		config.Additional = append(config.Additional, *buildBlock(at, payloads, false))
	}
	return config, nil
}

// hasPayload reports whether the payload required by the mechanism was
// supplied. API_KEY and AWS_IAM require none.
func hasPayload(at AuthType, payloads AuthPayloads) bool {
	switch at {
	case AuthOIDC:
		return payloads.OpenIDConnect != nil
	case AuthLambda:
		return payloads.Lambda != nil
	case AuthCognito:
		return payloads.Cognito != nil
	default:
		return true
	}
}

// buildBlock shapes one provider block for its mechanism. The Cognito
// additional-provider shape drops default_action even when supplied.
func buildBlock(at AuthType, payloads AuthPayloads, primary bool) *AuthBlock {
	block := &AuthBlock{Type: at}
	switch at {
	case AuthOIDC:
		oidc := *payloads.OpenIDConnect
		block.OpenIDConnect = &oidc
	case AuthLambda:
		lambda := *payloads.Lambda
		block.Lambda = &lambda
	case AuthCognito:
		cognito := *payloads.Cognito
		if !primary {
			cognito.DefaultAction = ""
		}
		block.Cognito = &cognito
	}
	return block
}
