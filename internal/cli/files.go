package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newFilesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file"},
		Short:   "Upload files to datasets and get download links",
	}
	cmd.AddCommand(newFilesListCmd(app), newFilesUploadCmd(app), newFilesLinkCmd(app))
	return cmd
}

func newFilesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <dataset-id>",
		Short: "List the files of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := app.client().Get(commandContext(cmd), datasetPath(args[0], "files"), nil)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, doc gjson.Result) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tFILENAME\tSIZE (KB)\tTYPE\tUPLOADED BY")
				doc.Get("files").ForEach(func(_, f gjson.Result) bool {
					fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", f.Get("id").String(), f.Get("filename").String(),
						f.Get("size_kb").Float(), f.Get("content_type").String(), f.Get("uploaded_by").String())
					return true
				})
				return tw.Flush()
			})
		},
	}
}

func newFilesUploadCmd(app *App) *cobra.Command {
	var description, tags string
	cmd := &cobra.Command{
		Use:   "upload <dataset-id> <file>",
		Short: "Upload a file to a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[1]); err != nil {
				return fmt.Errorf("cannot read %s: %w", args[1], err)
			}
			body, _, err := app.client().DoRequest(commandContext(cmd), RequestOptions{
				Method: http.MethodPost,
				Path:   datasetPath(args[0], "files"),
				Body:   multipartFile(args[1], map[string]string{"description": description, "tags": tags}),
			})
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, f gjson.Result) error {
				_, err := fmt.Fprintf(w, "Uploaded %s (%s, %.2f KB)\n", f.Get("filename").String(),
					f.Get("id").String(), f.Get("size_kb").Float())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "File description")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags")
	return cmd
}

func newFilesLinkCmd(app *App) *cobra.Command {
	var direct bool
	cmd := &cobra.Command{
		Use:   "link <dataset-id> <file-id>",
		Short: "Print a time-limited download link for a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "download"
			if direct {
				kind = "direct-link"
			}
			body, err := app.client().Get(commandContext(cmd), datasetPath(args[0], "files", args[1], kind), nil)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, l gjson.Result) error {
				_, err := fmt.Fprintf(w, "%s (valid for %d hours)\n", l.Get("url").String(), l.Get("valid_hours").Int())
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&direct, "direct", false, "Generate a longer-lived direct link")
	return cmd
}
