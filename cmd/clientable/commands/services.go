package commands

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
	"github.com/fivetwenty-io/clientable/pkg/registry"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewServicesCommand creates the services command group.
func NewServicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "services",
		Aliases: []string{"service", "svc"},
		Short:   "Manage configured services",
		Long:    "List, add, remove and resolve the services resources are called on",
	}

	cmd.AddCommand(newServicesListCommand())
	cmd.AddCommand(newServicesAddCommand())
	cmd.AddCommand(newServicesRemoveCommand())
	cmd.AddCommand(newServicesResolveCommand())
	cmd.AddCommand(newServicesPublishCommand())

	return cmd
}

type serviceRow struct {
	Name            string `json:"name"                       yaml:"name"`
	Endpoint        string `json:"endpoint"                   yaml:"endpoint"`
	ProtocolVersion string `json:"protocol_version,omitempty" yaml:"protocol_version,omitempty"`
	APIVersion      string `json:"api_version,omitempty"      yaml:"api_version,omitempty"`
	Authorization   string `json:"authorization,omitempty"    yaml:"authorization,omitempty"`
}

func newServicesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured services",
		Long:    "List the services stored in the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if len(config.Services) == 0 {
				return constants.ErrNoServicesConfigured
			}

			names := make([]string, 0, len(config.Services))
			for name := range config.Services {
				names = append(names, name)
			}

			sort.Strings(names)

			rows := make([]serviceRow, 0, len(names))
			for _, name := range names {
				service := config.Services[name]

				row := serviceRow{
					Name:            name,
					Endpoint:        service.Endpoint,
					ProtocolVersion: service.ProtocolVersion,
					APIVersion:      service.APIVersion,
				}
				if service.Authorization != "" {
					row.Authorization = Masked
				}

				rows = append(rows, row)
			}

			return render(cmd.OutOrStdout(), rows, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header("Name", "Endpoint", "Protocol", "API Version", "Authorization")

				for _, row := range rows {
					_ = table.Append(
						row.Name,
						row.Endpoint,
						valueOrDefault(row.ProtocolVersion, constants.DefaultProtocolVersion),
						valueOrDefault(row.APIVersion, constants.DefaultAPIVersion),
						valueOrNA(row.Authorization),
					)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}
}

func newServicesAddCommand() *cobra.Command {
	var (
		authorization       string
		promptAuthorization bool
		protocolVersion     string
		apiVersion          string
		force               bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME ENDPOINT",
		Short: "Add a service",
		Long:  "Store a service name and its base endpoint in the configuration file",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, endpoint := args[0], args[1]

			err := registry.ValidateName(name)
			if err != nil {
				return err
			}

			err = registry.ValidateEndpoint(endpoint)
			if err != nil {
				return err
			}

			if protocolVersion != "" {
				_, err = clientable.ParseProtocolVersion(protocolVersion)
				if err != nil {
					return err
				}
			}

			config, err := loadConfig()
			if err != nil {
				return err
			}

			if _, exists := config.Services[name]; exists && !force {
				return fmt.Errorf("%w: %s", constants.ErrServiceExists, name)
			}

			if promptAuthorization {
				authorization, err = readSecret(cmd, "Authorization: ")
				if err != nil {
					return err
				}
			}

			config.Services[name] = &ServiceConfig{
				Endpoint:        endpoint,
				Authorization:   authorization,
				ProtocolVersion: protocolVersion,
				APIVersion:      apiVersion,
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Service '%s' added\n", name)

			return nil
		},
	}

	cmd.Flags().StringVar(&authorization, "authorization", "", "Authorization header sent to the service")
	cmd.Flags().BoolVar(&promptAuthorization, "prompt-authorization", false, "read the Authorization header from the terminal")
	cmd.Flags().StringVar(&protocolVersion, "protocol-version", "", "wire convention of the service (v1, v2)")
	cmd.Flags().StringVar(&apiVersion, "api-version", "", "API version URI segment")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing service")

	return cmd
}

func newServicesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a service",
		Long:    "Remove a service from the configuration file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			config, err := loadConfig()
			if err != nil {
				return err
			}

			if _, exists := config.Services[name]; !exists {
				return fmt.Errorf("%w: %s", constants.ErrServiceNotConfigured, name)
			}

			delete(config.Services, name)

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Service '%s' removed\n", name)

			return nil
		},
	}
}

func newServicesResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME",
		Short: "Resolve a service endpoint",
		Long:  "Resolve a service through the configured registry and print its endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			resolver, err := registry.NewFromConfig(cmd.Context(), registryConfig(config))
			if err != nil {
				return fmt.Errorf("failed to create registry: %w", err)
			}
			defer closeResolver(resolver)

			endpoint, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), endpoint)

			return nil
		},
	}
}

func newServicesPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish NAME",
		Short: "Publish a service to the NATS registry",
		Long:  "Write a configured service endpoint to the NATS key-value registry so other clients resolve it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			config, err := loadConfig()
			if err != nil {
				return err
			}

			service, exists := config.Services[name]
			if !exists {
				return fmt.Errorf("%w: %s", constants.ErrServiceNotConfigured, name)
			}

			natsConfig := registryConfig(config).NATS
			if natsConfig == nil {
				return registry.ErrNATSConfigRequired
			}

			resolver, err := registry.NewNATSResolver(cmd.Context(), natsConfig)
			if err != nil {
				return fmt.Errorf("failed to connect to registry: %w", err)
			}
			defer closeResolver(resolver)

			err = resolver.Register(cmd.Context(), name, service.Endpoint)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Service '%s' published to %s\n", name, natsConfig.Bucket)

			return nil
		},
	}
}

func closeResolver(resolver registry.Resolver) {
	if closer, ok := resolver.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// readSecret reads a line without echo from a terminal, or a plain line from
// any other input.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}

		return strings.TrimSpace(string(secret)), nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	return strings.TrimSpace(line), nil
}
