package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// envelopeView is how a raw response is printed.
type envelopeView struct {
	Status  int                    `json:"status"`
	Code    int                    `json:"code"`
	Message string                 `json:"msg"`
	Data    interface{}            `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
}

func newEnvelopeView(resp *clientable.Response) envelopeView {
	return envelopeView{
		Status:  resp.StatusCode(),
		Code:    resp.ServiceStatus(),
		Message: resp.Message(),
		Data:    resp.Data(),
		Meta:    resp.Meta(),
	}
}

func renderEnvelope(cmd *cobra.Command, resp *clientable.Response) error {
	view := newEnvelopeView(resp)

	err := render(cmd.OutOrStdout(), view, func(w io.Writer) error {
		data, err := json.Marshal(view.Data)
		if err != nil {
			return fmt.Errorf("failed to encode data: %w", err)
		}

		table := tablewriter.NewWriter(w)
		table.Header("Property", "Value")
		_ = table.Append("Status", fmt.Sprintf("%d", view.Status))
		_ = table.Append("Code", fmt.Sprintf("%d", view.Code))
		_ = table.Append("Message", valueOrNA(view.Message))
		_ = table.Append("Data", truncate(string(data), constants.StringTruncationLength))

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return resp.Err()
}

// NewRequestCommand creates the request command.
func NewRequestCommand() *cobra.Command {
	var data, file string

	cmd := &cobra.Command{
		Use:   "request SERVICE METHOD URI",
		Short: "Send a request to a service",
		Long:  "Send an arbitrary JSON request to a service URI and print the response envelope",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body interface{}

			if data != "" || file != "" {
				raw, err := payload(data, file)
				if err != nil {
					return err
				}

				body = json.RawMessage(raw)
			}

			sess, err := openSession(cmd, args[0], "")
			if err != nil {
				return err
			}
			defer sess.Close()

			repo, err := sess.api.Repository()
			if err != nil {
				return err
			}

			resp, err := repo.RestRequest(cmd.Context(), strings.ToUpper(args[1]), args[2], body)
			if err != nil {
				return err
			}

			return renderEnvelope(cmd, resp)
		},
	}

	registerPayloadFlags(cmd, &data, &file)

	return cmd
}

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload SERVICE METHOD URI FILE",
		Short: "Upload a file to a service",
		Long:  "Send a file as the raw request body to a service URI and print the response envelope",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount + constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Clean(args[3])

			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to stat file: %w", err)
			}

			if !info.Mode().IsRegular() {
				return fmt.Errorf("%w: %s", constants.ErrNotRegularFile, path)
			}

			sess, err := openSession(cmd, args[0], "")
			if err != nil {
				return err
			}
			defer sess.Close()

			// #nosec G304 -- the user names the file to upload
			upload, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer func() { _ = upload.Close() }()

			repo, err := sess.api.Repository()
			if err != nil {
				return err
			}

			resp, err := repo.FileRequest(cmd.Context(), strings.ToUpper(args[1]), args[2], upload)
			if err != nil {
				return err
			}

			return renderEnvelope(cmd, resp)
		},
	}

	return cmd
}
