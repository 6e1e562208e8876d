package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/apiclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const resourceArgs = "SERVICE RESOURCE"

// queryFlags holds the query options shared by the read commands.
type queryFlags struct {
	selects []string
	with    []string
	where   []string
	orderBy []string
	limit   int
	page    int
	perPage int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.selects, "select", nil, "fields to return (comma separated)")
	cmd.Flags().StringSliceVar(&f.with, "with", nil, "relations to include (comma separated)")
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, "filter as key=value or key:op=value (repeatable)")
	cmd.Flags().StringSliceVar(&f.orderBy, "order-by", nil, "sort keys, prefix with - for descending")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of resources")
	cmd.Flags().IntVar(&f.page, "page", 0, "page number")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "resources per page")
}

// apply adds the flag values to api's query.
func (f *queryFlags) apply(api *apiclient.API) (*apiclient.API, error) {
	if len(f.selects) > 0 {
		api = api.Select(f.selects...)
	}

	if len(f.with) > 0 {
		api = api.With(f.with...)
	}

	for _, raw := range f.where {
		key, operator, value, err := parseFilter(raw)
		if err != nil {
			return nil, err
		}

		if operator == "in" {
			values := strings.Split(value, ",")

			in := make([]interface{}, len(values))
			for i, v := range values {
				in[i] = v
			}

			api = api.WhereIn(key, in...)

			continue
		}

		api = api.Where(key, operator, value)
	}

	for _, order := range f.orderBy {
		if strings.HasPrefix(order, "-") {
			api = api.OrderBy(strings.TrimPrefix(order, "-"), "desc")
		} else {
			api = api.OrderBy(order, "asc")
		}
	}

	if f.limit > 0 {
		api = api.Limit(f.limit)
	}

	if f.page > 0 {
		api = api.Page(f.page)
	}

	if f.perPage > 0 {
		api = api.PerPage(f.perPage)
	}

	return api, nil
}

// parseFilter splits key=value and key:op=value.
func parseFilter(raw string) (string, string, string, error) {
	left, value, found := strings.Cut(raw, "=")
	if !found || left == "" {
		return "", "", "", fmt.Errorf("%w: %s", constants.ErrInvalidFilter, raw)
	}

	key, operator, hasOperator := strings.Cut(left, ":")
	if !hasOperator {
		operator = "="
	}

	if key == "" || operator == "" {
		return "", "", "", fmt.Errorf("%w: %s", constants.ErrInvalidFilter, raw)
	}

	return key, strings.ToLower(operator), value, nil
}

func toIDs(args []string) []interface{} {
	ids := make([]interface{}, len(args))
	for i, arg := range args {
		ids[i] = arg
	}

	return ids
}

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "get " + resourceArgs + " ID [ID...]",
		Short: "Get resources by id",
		Long:  "Fetch one resource by id, or several in a single batch request",
		Args:  cobra.MinimumNArgs(constants.MinimumArgumentCount + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer sess.Close()

			api, err := flags.apply(sess.api)
			if err != nil {
				return err
			}

			ids := args[2:]
			out := cmd.OutOrStdout()

			if len(ids) == 1 {
				resource, err := api.Find(cmd.Context(), ids[0])
				if err != nil {
					return err
				}

				if resource == nil {
					return fmt.Errorf("%w: %s", constants.ErrResourceNotFound, ids[0])
				}

				return render(out, resource, func(w io.Writer) error {
					return renderResourceTable(w, resource)
				})
			}

			collection, err := api.FindMany(cmd.Context(), toIDs(ids)...)
			if err != nil {
				return err
			}

			return render(out, collection, func(w io.Writer) error {
				return renderCollectionTable(w, collection)
			})
		},
	}

	flags.register(cmd)

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		flags    queryFlags
		first    bool
		paginate bool
	)

	cmd := &cobra.Command{
		Use:   "list " + resourceArgs,
		Short: "List resources",
		Long:  "List the resources matching a query, one page with --paginate or the first match with --first",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer sess.Close()

			api, err := flags.apply(sess.api)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			switch {
			case first:
				resource, err := api.First(cmd.Context())
				if err != nil {
					return err
				}

				if resource == nil {
					return constants.ErrResourceNotFound
				}

				return render(out, resource, func(w io.Writer) error {
					return renderResourceTable(w, resource)
				})
			case paginate:
				paginator, err := api.Paginator(cmd.Context())
				if err != nil {
					return err
				}

				return render(out, paginator, func(w io.Writer) error {
					return renderPaginatorTable(w, paginator)
				})
			default:
				collection, err := api.Get(cmd.Context())
				if err != nil {
					return err
				}

				return render(out, collection, func(w io.Writer) error {
					return renderCollectionTable(w, collection)
				})
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&first, "first", false, "return only the first match")
	cmd.Flags().BoolVar(&paginate, "paginate", false, "return one page with pagination details")

	return cmd
}

// NewPluckCommand creates the pluck command.
func NewPluckCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "pluck " + resourceArgs + " COLUMN [KEY]",
		Short: "Map resources to one column",
		Long:  "Print one column of the matching resources keyed by KEY (default id)",
		Args:  cobra.RangeArgs(constants.MinimumArgumentCount+1, constants.MinimumArgumentCount+2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer sess.Close()

			api, err := flags.apply(sess.api)
			if err != nil {
				return err
			}

			key := constants.DefaultIDKey
			if len(args) > constants.MinimumArgumentCount+1 {
				key = args[3]
			}

			values, err := api.Pluck(cmd.Context(), args[2], key)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), values, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header(key, args[2])

				for _, k := range sortedKeys(values) {
					_ = table.Append(k, formatCell(values[k]))
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}

	flags.register(cmd)

	return cmd
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var data, file string

	cmd := &cobra.Command{
		Use:   "create " + resourceArgs,
		Short: "Create resources",
		Long:  "Create a resource from a JSON object, or several from a JSON array in one batch request",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := payload(data, file)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer sess.Close()

			if isJSONArray(raw) {
				objects, err := parseObjectList(raw)
				if err != nil {
					return err
				}

				collection, err := sess.api.CreateMany(cmd.Context(), objects)
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), collection, func(w io.Writer) error {
					return renderCollectionTable(w, collection)
				})
			}

			object, err := parseObject(raw)
			if err != nil {
				return err
			}

			resource, err := sess.api.Create(cmd.Context(), object)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), resource, func(w io.Writer) error {
				return renderResourceTable(w, resource)
			})
		},
	}

	registerPayloadFlags(cmd, &data, &file)

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var data, file string

	cmd := &cobra.Command{
		Use:   "update " + resourceArgs + " [ID]",
		Short: "Update resources",
		Long:  "Update a resource by id from a JSON object, or several from a JSON array of objects carrying their ids",
		Args:  cobra.RangeArgs(constants.MinimumArgumentCount, constants.MinimumArgumentCount+1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := payload(data, file)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer sess.Close()

			if len(args) == constants.MinimumArgumentCount {
				objects, err := parseObjectList(raw)
				if err != nil {
					return err
				}

				collection, err := sess.api.UpdateMany(cmd.Context(), objects)
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), collection, func(w io.Writer) error {
					return renderCollectionTable(w, collection)
				})
			}

			object, err := parseObject(raw)
			if err != nil {
				return err
			}

			resource, err := sess.api.Update(cmd.Context(), args[2], object)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), resource, func(w io.Writer) error {
				return renderResourceTable(w, resource)
			})
		},
	}

	registerPayloadFlags(cmd, &data, &file)

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete " + resourceArgs + " ID [ID...]",
		Short: "Delete resources",
		Long:  "Delete one resource by id, or several in a single batch request",
		Args:  cobra.MinimumNArgs(constants.MinimumArgumentCount + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer sess.Close()

			ids := args[2:]
			if len(ids) == 1 {
				err = sess.api.Destroy(cmd.Context(), ids[0])
			} else {
				err = sess.api.DestroyMany(cmd.Context(), toIDs(ids)...)
			}

			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", strings.Join(ids, ", "))

			return nil
		},
	}
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "aggregate " + resourceArgs + " METHOD [KEY...]",
		Short: "Aggregate resources",
		Long:  "Compute count, sum, avg, min or max over the matching resources",
		Args:  cobra.MinimumNArgs(constants.MinimumArgumentCount + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToLower(args[2])
			keys := args[3:]

			if len(keys) == 0 {
				if method != apiclient.AggregateCount {
					return constants.ErrAggregateKeyCount
				}

				keys = []string{"*"}
			}

			sess, err := openSession(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer sess.Close()

			api, err := flags.apply(sess.api)
			if err != nil {
				return err
			}

			values := make(map[string]interface{}, len(keys))

			if len(keys) == 1 {
				value, err := api.Aggregate(cmd.Context(), method, keys[0])
				if err != nil {
					return err
				}

				values[keys[0]] = value
			} else {
				values, err = api.AggregateMany(cmd.Context(), method, keys...)
				if err != nil {
					return err
				}
			}

			return render(cmd.OutOrStdout(), values, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header("Key", method)

				for _, key := range sortedKeys(values) {
					_ = table.Append(key, formatCell(values[key]))
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func registerPayloadFlags(cmd *cobra.Command, data, file *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "JSON payload")
	cmd.Flags().StringVarP(file, "file", "f", "", "file holding the JSON payload")
}

func isJSONArray(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))

	return strings.HasPrefix(trimmed, "[")
}
