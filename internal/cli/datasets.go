package cli

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func datasetPath(id string, rest ...string) string {
	return strings.Join(append([]string{"datasets", url.PathEscape(id)}, rest...), "/")
}

func datasetStatus(d gjson.Result) string {
	switch {
	case d.Get("is_deleted").Bool():
		return "deleted"
	case d.Get("is_production").Bool():
		return "production"
	}
	return "active"
}

func writeDatasetTable(w io.Writer, list gjson.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSTATUS\tCREATED BY\tTAGS")
	list.ForEach(func(_, d gjson.Result) bool {
		var tags []string
		for _, t := range d.Get("tags").Array() {
			tags = append(tags, t.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			d.Get("id").String(), d.Get("name").String(), d.Get("version").Int(),
			datasetStatus(d), d.Get("created_by").String(), strings.Join(tags, ","))
		return true
	})
	return tw.Flush()
}

func writeDataset(w io.Writer, d gjson.Result) error {
	fmt.Fprintf(w, "ID:          %s\n", d.Get("id").String())
	fmt.Fprintf(w, "Name:        %s\n", d.Get("name").String())
	fmt.Fprintf(w, "Version:     %d\n", d.Get("version").Int())
	fmt.Fprintf(w, "Status:      %s\n", datasetStatus(d))
	fmt.Fprintf(w, "Description: %s\n", d.Get("description").String())
	fmt.Fprintf(w, "Created by:  %s at %s\n", d.Get("created_by").String(), d.Get("created_at").String())
	if p := d.Get("parent_id"); p.Exists() && p.Type != gjson.Null {
		fmt.Fprintf(w, "Parent:      %s\n", p.String())
	}
	var tags []string
	for _, t := range d.Get("tags").Array() {
		tags = append(tags, t.String())
	}
	_, err := fmt.Fprintf(w, "Tags:        %s\n", strings.Join(tags, ", "))
	return err
}

func newDatasetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset", "ds"},
		Short:   "Create, browse and manage datasets",
	}
	cmd.AddCommand(
		newDatasetListCmd(app),
		newDatasetGetCmd(app),
		newDatasetCreateCmd(app),
		newDatasetVersionCmd(app),
		newDatasetSearchCmd(app),
		newDatasetLineageCmd(app),
		newDatasetUpdateCmd(app),
		newDatasetActionCmd(app, "delete", "Soft delete a dataset", "delete", nil),
		newDatasetActionCmd(app, "restore", "Restore a deleted dataset", "restore", nil),
		newDatasetActionCmd(app, "set-production", "Mark a dataset as the production version of its family", "production", []byte(`{"production":true}`)),
		newDatasetActionCmd(app, "unset-production", "Clear the production flag of a dataset", "production", []byte(`{"production":false}`)),
	)
	return cmd
}

func newDatasetListCmd(app *App) *cobra.Command {
	var showDeleted bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List datasets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := app.client().Get(commandContext(cmd), "datasets", map[string]string{
				"show_deleted": fmt.Sprint(showDeleted),
			})
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, doc gjson.Result) error {
				return writeDatasetTable(w, doc.Get("datasets"))
			})
		},
	}
	cmd.Flags().BoolVar(&showDeleted, "deleted", false, "Include deleted datasets")
	return cmd
}

func newDatasetGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dataset-id>",
		Short: "Show a dataset with its versions and lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := app.client().Get(commandContext(cmd), datasetPath(args[0]), nil)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, doc gjson.Result) error {
				if err := writeDataset(w, doc.Get("dataset")); err != nil {
					return err
				}
				fmt.Fprintln(w, "\nVersions:")
				if err := writeDatasetTable(w, doc.Get("versions")); err != nil {
					return err
				}
				var chain []string
				for _, a := range doc.Get("lineage").Array() {
					chain = append(chain, a.Get("name").String())
				}
				if len(chain) > 0 {
					fmt.Fprintf(w, "\nLineage: %s\n", strings.Join(chain, " <- "))
				}
				return nil
			})
		},
	}
}

func newDatasetCreateCmd(app *App) *cobra.Command {
	var name, description, tags, parent, filename string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a dataset",
		Long: `Create a dataset from flags or from a YAML or JSON file.
With --parent the dataset is created as the next version of the parent's family.

Examples:
  catalog-cli datasets create --name Sales --description "monthly sales" --tags finance,monthly
  catalog-cli datasets create -f dataset.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc []byte
			var err error
			if filename != "" {
				doc, err = LoadDatasetFile(filename)
			} else {
				doc, err = datasetBody(map[string]string{
					"name":        name,
					"description": description,
				}, splitTags(tags, cmd.Flags().Changed("tags")))
			}
			if err != nil {
				return err
			}
			if parent != "" {
				if doc, err = sjson.SetBytes(doc, "parent_id", parent); err != nil {
					return err
				}
			}
			body, err := app.client().Post(commandContext(cmd), "datasets", doc)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, d gjson.Result) error {
				_, err := fmt.Fprintf(w, "Created %s (%s)\n", d.Get("name").String(), d.Get("id").String())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Dataset name")
	cmd.Flags().StringVar(&description, "description", "", "Dataset description")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags")
	cmd.Flags().StringVar(&parent, "parent", "", "Create as a new version of this dataset id")
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Read the dataset definition from a file")
	cmd.MarkFlagsMutuallyExclusive("filename", "name")
	return cmd
}

func newDatasetVersionCmd(app *App) *cobra.Command {
	var description, tags string
	cmd := &cobra.Command{
		Use:   "new-version <parent-id>",
		Short: "Create the next version of a dataset family",
		Long: `Create the next version of a dataset family. Description and tags are
inherited from the parent unless given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := datasetBody(map[string]string{"description": description},
				splitTags(tags, cmd.Flags().Changed("tags")))
			if err != nil {
				return err
			}
			body, err := app.client().Post(commandContext(cmd), datasetPath(args[0], "versions"), doc)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, d gjson.Result) error {
				_, err := fmt.Fprintf(w, "Created %s (%s)\n", d.Get("name").String(), d.Get("id").String())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Description of the new version")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags of the new version")
	return cmd
}

func newDatasetSearchCmd(app *App) *cobra.Command {
	var showDeleted bool
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search datasets",
		Long: `Search datasets by free text and filters.

Filters: tag:<tag>  by:<user>  status:deleted|active|production

Example:
  catalog-cli datasets search sales tag:finance by:alice`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := app.client().Get(commandContext(cmd), "datasets/search", map[string]string{
				"query":        strings.Join(args, " "),
				"show_deleted": fmt.Sprint(showDeleted),
			})
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, doc gjson.Result) error {
				return writeDatasetTable(w, doc.Get("datasets"))
			})
		},
	}
	cmd.Flags().BoolVar(&showDeleted, "deleted", false, "Include deleted datasets")
	return cmd
}

func newDatasetLineageCmd(app *App) *cobra.Command {
	var showDeleted bool
	cmd := &cobra.Command{
		Use:   "lineage [dataset-id]",
		Short: "Print the lineage graph of all datasets or of one family",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := "datasets/lineage"
			if len(args) == 1 {
				p = datasetPath(args[0], "lineage")
			}
			body, err := app.client().Get(commandContext(cmd), p, map[string]string{
				"show_deleted": fmt.Sprint(showDeleted),
			})
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, writeGraph)
		},
	}
	cmd.Flags().BoolVar(&showDeleted, "deleted", false, "Include deleted datasets")
	return cmd
}

// writeGraph prints one "parent -> child" line per edge, using node names
// where the node is part of the graph.
func writeGraph(w io.Writer, g gjson.Result) error {
	names := map[string]string{}
	for _, n := range g.Get("nodes").Array() {
		names[n.Get("id").String()] = n.Get("name").String()
	}
	label := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
	edges := g.Get("edges").Array()
	if len(edges) == 0 {
		_, err := fmt.Fprintf(w, "%d datasets, no lineage\n", len(names))
		return err
	}
	for _, e := range edges {
		if _, err := fmt.Fprintf(w, "%s -> %s\n", label(e.Get("source").String()), label(e.Get("target").String())); err != nil {
			return err
		}
	}
	return nil
}

func newDatasetUpdateCmd(app *App) *cobra.Command {
	var description, tags string
	cmd := &cobra.Command{
		Use:   "update <dataset-id>",
		Short: "Update the description and tags of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := datasetBody(map[string]string{"description": description},
				splitTags(tags, cmd.Flags().Changed("tags")))
			if err != nil {
				return err
			}
			body, err := app.client().Put(commandContext(cmd), datasetPath(args[0]), doc)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, writeDataset)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags replacing the current ones")
	cmd.MarkFlagRequired("description")
	return cmd
}

// newDatasetActionCmd builds the commands that POST to /datasets/{id}/<action>.
func newDatasetActionCmd(app *App, use, short, action string, payload []byte) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <dataset-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := app.client().Post(commandContext(cmd), datasetPath(args[0], action), payload)
			if err != nil {
				return err
			}
			return app.printBody(cmd, body, func(w io.Writer, d gjson.Result) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", d.Get("name").String(), datasetStatus(d))
				return err
			})
		},
	}
}
