package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"
	Masked       = "***"

	truncationSuffix = "..."
)

// outputFormat returns the configured output format. Without one, tables are
// written to terminals and JSON everywhere else.
func outputFormat(w io.Writer) (string, error) {
	format := strings.ToLower(viper.GetString("output"))

	switch format {
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		return format, nil
	case "":
		if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			return constants.FormatTable, nil
		}

		return constants.FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutput, format)
	}
}

// render writes value in the selected format, falling back to table for the
// table format.
func render(w io.Writer, value interface{}, table func(w io.Writer) error) error {
	format, err := outputFormat(w)
	if err != nil {
		return err
	}

	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(toPlain(value))
	default:
		return table(w)
	}
}

// toPlain round-trips value through JSON so yaml sees the same shape and keys
// as the JSON output.
func toPlain(value interface{}) interface{} {
	data, err := json.Marshal(value)
	if err != nil {
		return value
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var plain interface{}
	if err := decoder.Decode(&plain); err != nil {
		return value
	}

	return plain
}

func renderResourceTable(w io.Writer, resource clientable.Resource) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	for _, key := range sortedKeys(resource) {
		_ = table.Append(key, formatCell(resource[key]))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderCollectionTable(w io.Writer, collection *clientable.ResourceCollection) error {
	if collection.IsEmpty() {
		_, err := fmt.Fprintln(w, "No resources found")

		return err
	}

	columns := collectionColumns(collection)

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, item := range collection.Items() {
		row := make([]string, len(columns))
		for i, column := range columns {
			if value, ok := item[column]; ok {
				row[i] = formatCell(value)
			}
		}

		_ = table.Append(row)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderPaginatorTable(w io.Writer, paginator *clientable.Paginator) error {
	if err := renderCollectionTable(w, paginator.Items); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Page %d of %d (%d total, %d per page)\n",
		paginator.CurrentPage, paginator.LastPage(), paginator.Total, paginator.PerPage)

	return err
}

// collectionColumns orders columns with the id first, then alphabetically.
func collectionColumns(collection *clientable.ResourceCollection) []string {
	seen := make(map[string]bool)

	for _, item := range collection.Items() {
		for key := range item {
			seen[key] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		if key != constants.DefaultIDKey {
			columns = append(columns, key)
		}
	}

	sort.Strings(columns)

	if seen[constants.DefaultIDKey] {
		columns = append([]string{constants.DefaultIDKey}, columns...)
	}

	return columns
}

func sortedKeys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func formatCell(value interface{}) string {
	var text string

	switch typed := value.(type) {
	case nil:
		return NotAvailable
	case string:
		text = typed
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}

		text = string(data)
	default:
		text = clientable.FormatID(typed)
	}

	return truncate(text, constants.StringTruncationLength)
}

func truncate(text string, length int) string {
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}

	return string(runes[:length-len(truncationSuffix)]) + truncationSuffix
}

// readDataFile reads a JSON payload from path, refusing traversal and
// anything that is not a regular file.
func readDataFile(path string) ([]byte, error) {
	cleaned := filepath.Clean(path)
	if strings.Contains(path, "..") && cleaned != path {
		return nil, constants.ErrDirectoryTraversalDetected
	}

	info, err := os.Stat(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", constants.ErrNotRegularFile, cleaned)
	}

	// #nosec G304 -- path is cleaned and checked above
	data, err := os.ReadFile(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// payload returns the raw JSON given with --data or --file.
func payload(data, file string) ([]byte, error) {
	switch {
	case data != "":
		return []byte(data), nil
	case file != "":
		return readDataFile(file)
	default:
		return nil, constants.ErrDataRequired
	}
}

func parseObject(raw []byte) (map[string]interface{}, error) {
	var object map[string]interface{}
	if err := json.Unmarshal(raw, &object); err != nil || object == nil {
		return nil, constants.ErrInvalidData
	}

	return object, nil
}

func parseObjectList(raw []byte) ([]map[string]interface{}, error) {
	var objects []map[string]interface{}
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, constants.ErrInvalidDataList
	}

	for _, object := range objects {
		if object == nil {
			return nil, constants.ErrInvalidDataList
		}
	}

	return objects, nil
}
