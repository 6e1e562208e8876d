package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Request timeouts. A zero value disables the corresponding timeout.
const (
	// DefaultConnectTimeout bounds establishing the TCP/TLS connection.
	DefaultConnectTimeout = 2 * time.Second

	// DefaultReadTimeout bounds waiting for the response headers.
	DefaultReadTimeout = 3 * time.Second

	// DefaultTimeout bounds the whole request.
	DefaultTimeout = 6 * time.Second
)

// Protocol and routing defaults.
const (
	// DefaultProtocolVersion is the wire convention used when none is configured.
	DefaultProtocolVersion = "v2"

	// DefaultAPIVersion is the {apiVersion} URI segment used when none is configured.
	DefaultAPIVersion = "v2"

	// DefaultIDKey is the key used to index resource collections.
	DefaultIDKey = "id"
)

// URI path suffixes.
const (
	// BatchSuffix marks a batch-shaped endpoint.
	BatchSuffix = "_batch"

	// AggregateSuffix marks the aggregate endpoint.
	AggregateSuffix = "_aggregate"

	// IDSeparator joins ids in a batch path segment.
	IDSeparator = ","
)

// Header defaults.
const (
	// DefaultContentType is sent with every non-file request.
	DefaultContentType = "application/json"

	// DefaultAccept is sent with every non-file request.
	DefaultAccept = "application/json"

	// DefaultUserAgent identifies the client.
	DefaultUserAgent = "api.client v1.0"
)

// Header names.
const (
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderUserID        = "X-User-ID"
	HeaderConsumerName  = "X-Consumer-Name"
	HeaderApp           = "X-App"
	HeaderLanguage      = "X-Language"
)

// HTTP status codes used by the envelope.
const (
	// HTTPStatusOK is the implicit payload code when a body carries none.
	HTTPStatusOK = 200

	// HTTPStatusMultipleChoices is the first status outside the success range.
	HTTPStatusMultipleChoices = 300

	// HTTPStatusBadRequest marks an unexpected client-side failure.
	HTTPStatusBadRequest = 400

	// HTTPStatusUnprocessableEntity is the conventional validation error code.
	HTTPStatusUnprocessableEntity = 422

	// HTTPStatusInternalServerError marks server errors and collapsed transport failures.
	HTTPStatusInternalServerError = 500
)

// Pagination defaults.
const (
	// DefaultPerPage is used when a paginator carries no per_page.
	DefaultPerPage = 10

	// DefaultCurrentPage is used when a paginator carries no current_page.
	DefaultCurrentPage = 1
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// Validation and limits.
const (
	// MinimumArgumentCount is the minimum number of command line arguments.
	MinimumArgumentCount = 2

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2

	// StringTruncationLength is the default length for truncating table cells.
	StringTruncationLength = 80
)

// Registry constants.
const (
	// DefaultRegistryBucket is the NATS key-value bucket holding service endpoints.
	DefaultRegistryBucket = "clientable_services"

	// RegistryLookupTimeout bounds a single registry lookup.
	RegistryLookupTimeout = 5 * time.Second
)
