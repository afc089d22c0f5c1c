package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newTagsCmd(app *App) *cobra.Command {
	var counts bool
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the tags in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := "datasets/tags"
			if counts {
				p = "datasets/tags/counts"
			}
			body, err := app.client().Get(commandContext(cmd), p, nil)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, doc gjson.Result) error {
				for _, t := range doc.Get("tags").Array() {
					if counts {
						fmt.Fprintf(w, "%s\t%d\n", t.Get("tag").String(), t.Get("count").Int())
					} else {
						fmt.Fprintln(w, t.String())
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&counts, "counts", false, "Show how many datasets carry each tag")
	return cmd
}
