package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/apiclient"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
	"github.com/fivetwenty-io/clientable/pkg/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session is a resolved API plus the registry it came from.
type session struct {
	api      *apiclient.API
	resolver registry.Resolver
}

func (s *session) Close() {
	s.api.CloseIdleConnections()
	closeResolver(s.resolver)
}

// openSession resolves service and configures an API for resource. Settings
// apply in order: global configuration, the service entry, then flags given
// on the command line.
func openSession(cmd *cobra.Command, service, resource string) (*session, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if len(config.Services) == 0 && (config.Registry == nil || config.Registry.Type == "") {
		return nil, constants.ErrNoServicesConfigured
	}

	resolver, err := registry.NewFromConfig(cmd.Context(), registryConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	settings, err := resolveSettings(cmd, config, config.Services[service])
	if err != nil {
		closeResolver(resolver)

		return nil, err
	}

	api, err := apiclient.New(cmd.Context(), resolver, service,
		apiclient.WithLogger(newLogger(cmd.ErrOrStderr())),
		apiclient.WithConfig(settings.apply),
	)
	if err != nil {
		closeResolver(resolver)

		return nil, err
	}

	if resource != "" {
		api = api.Resource(resource)
	}

	return &session{api: api, resolver: resolver}, nil
}

// sessionSettings are the request settings derived from configuration and flags.
type sessionSettings struct {
	version       clientable.ProtocolVersion
	apiVersion    string
	authorization string
	userAgent     string
	debug         bool
	timeout       time.Duration
	headers       map[string]string
}

func (s *sessionSettings) apply(config *clientable.Config) {
	config.Version = s.version

	if s.apiVersion != "" {
		config.APIVersion = s.apiVersion
	}

	if s.authorization != "" {
		config.Authorization = s.authorization
	}

	if s.userAgent != "" {
		config.UserAgent = s.userAgent
	}

	config.Debug = s.debug

	if s.timeout > 0 {
		config.Timeout = s.timeout
	}

	for key, value := range s.headers {
		config.Headers[key] = value
	}
}

func resolveSettings(cmd *cobra.Command, config *Config, service *ServiceConfig) (*sessionSettings, error) {
	if service == nil {
		service = &ServiceConfig{}
	}

	rawVersion := setting(cmd, "protocol-version", service.ProtocolVersion, config.ProtocolVersion)

	version, err := clientable.ParseProtocolVersion(rawVersion)
	if err != nil {
		return nil, err
	}

	rawHeaders, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		rawHeaders = viper.GetStringSlice("header")
	}

	headers, err := parseHeaders(rawHeaders)
	if err != nil {
		return nil, err
	}

	var timeout time.Duration

	if rawTimeout := setting(cmd, "timeout", "", config.Timeout); rawTimeout != "" {
		timeout, err = time.ParseDuration(rawTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", rawTimeout, err)
		}
	}

	return &sessionSettings{
		version:       version,
		apiVersion:    setting(cmd, "api-version", service.APIVersion, config.APIVersion),
		authorization: setting(cmd, "authorization", service.Authorization, viper.GetString("authorization")),
		userAgent:     setting(cmd, "user-agent", "", config.UserAgent),
		debug:         viper.GetBool("debug"),
		timeout:       timeout,
		headers:       headers,
	}, nil
}

// setting returns the flag value when the flag was given, else the service
// value, else the global value.
func setting(cmd *cobra.Command, flag, serviceValue, globalValue string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return f.Value.String()
	}

	if serviceValue != "" {
		return serviceValue
	}

	return globalValue
}

// parseHeaders accepts "Name: value" and "Name=value".
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))

	for _, header := range raw {
		index := strings.IndexAny(header, ":=")
		if index <= 0 {
			return nil, fmt.Errorf("%w: %s", constants.ErrInvalidHeader, header)
		}

		headers[strings.TrimSpace(header[:index])] = strings.TrimSpace(header[index+1:])
	}

	return headers, nil
}
