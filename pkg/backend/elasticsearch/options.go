package elasticsearch

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/marmos91/backplane/pkg/config"
)

// ServerModeServerless marks a client talking to Elastic Cloud Serverless.
const ServerModeServerless = "serverless"

// serverlessAPIVersion is the API version serverless projects require.
const serverlessAPIVersion = "2023-10-31"

// AuthKind tags the variant held by an AuthStrategy.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthAPIKey
	AuthBasic
)

func (k AuthKind) String() string {
	switch k {
	case AuthAPIKey:
		return "api_key"
	case AuthBasic:
		return "basic"
	default:
		return "none"
	}
}

// AuthStrategy is the credential scheme presented to the cluster. Only the
// fields of its Kind are set.
type AuthStrategy struct {
	Kind     AuthKind
	APIKey   string
	Username string
	Password string
}

// ResolveAuth picks the auth strategy: an API key wins, then basic auth when
// both username and password are set, otherwise none.
func ResolveAuth(cfg config.ElasticsearchConfig) AuthStrategy {
	switch {
	case cfg.APIKey != "":
		return AuthStrategy{Kind: AuthAPIKey, APIKey: cfg.APIKey}
	case cfg.Username != "" && cfg.Password != "":
		return AuthStrategy{Kind: AuthBasic, Username: cfg.Username, Password: cfg.Password}
	default:
		return AuthStrategy{Kind: AuthNone}
	}
}

// ClientOptions are the resolved construction parameters of the client.
type ClientOptions struct {
	Node       string
	Auth       AuthStrategy
	ServerMode string
}

// BuildClientOptions resolves the client options. The serverless flag only
// sets ServerMode; it never changes the auth strategy.
func BuildClientOptions(cfg config.ElasticsearchConfig) ClientOptions {
	opts := ClientOptions{
		Node: cfg.Node,
		Auth: ResolveAuth(cfg),
	}
	if cfg.Serverless {
		opts.ServerMode = ServerModeServerless
	}
	return opts
}

// Serverless reports whether the options target a serverless project.
func (o ClientOptions) Serverless() bool {
	return o.ServerMode == ServerModeServerless
}

// clientConfig maps the options onto the go-elasticsearch configuration.
func (o ClientOptions) clientConfig(transport http.RoundTripper) elasticsearch.Config {
	cfg := elasticsearch.Config{
		Addresses: []string{o.Node},
		Transport: transport,
	}

	switch o.Auth.Kind {
	case AuthAPIKey:
		cfg.APIKey = o.Auth.APIKey
	case AuthBasic:
		cfg.Username = o.Auth.Username
		cfg.Password = o.Auth.Password
	}

	if o.Serverless() {
		cfg.Header = http.Header{"Elastic-Api-Version": []string{serverlessAPIVersion}}
		cfg.DiscoverNodesOnStart = false
		cfg.CompressRequestBody = true
	}
	return cfg
}
