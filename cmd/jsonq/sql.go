package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/erymuzuan/motorent-sub003/managers"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

type sqlOptions struct {
	queryOptions
	shape string
	yaml  bool
	dot   bool
}

func newSQLCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &sqlOptions{}
	cmd := &cobra.Command{
		Use:   "sql <entity>",
		Short: "Print the SQL a query translates to",
		Long: `Translate a query without connecting to a database.

Shapes: payload (default), count, delete, max:F, min:F, sum:F, avg:F,
distinct:F, group:F, groupsum:F:V, columns:F,G.

Example:
  jsonq sql Widget --where "Price > 10 and Active" --order "Name desc"
  jsonq sql Widget --shape groupsum:Address.City:Price --yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				t, err := a.translate(args[0], &opts.queryOptions, opts.shape)
				if err != nil {
					return err
				}
				switch {
				case opts.dot:
					_, err = fmt.Fprint(a.out, visitors.Dot(t.Statement))
				case opts.yaml:
					err = writeYAML(a.out, a.dialect(), t)
				default:
					_, err = fmt.Fprintln(a.out, t.SQL)
				}
				return err
			})
		},
	}
	addQueryFlags(cmd, &opts.queryOptions)
	cmd.Flags().StringVar(&opts.shape, "shape", "", "what to read (see above)")
	cmd.Flags().BoolVar(&opts.yaml, "yaml", false, "print the translation as YAML")
	cmd.Flags().BoolVar(&opts.dot, "dot", false, "print the statement tree in Graphviz DOT")
	return cmd
}

func addQueryFlags(cmd *cobra.Command, o *queryOptions) {
	cmd.Flags().StringArrayVarP(&o.where, "where", "w", nil, "filter, e.g. \"Status in ('Active') and Price >= 10\"; repeatable")
	cmd.Flags().StringVarP(&o.order, "order", "o", "", "ordering, e.g. \"Price desc, Name\"")
	cmd.Flags().StringVarP(&o.fields, "fields", "f", "", "comma-separated fields to read instead of whole entities")
	cmd.Flags().IntVar(&o.page, "page", 0, "1-based page")
	cmd.Flags().IntVar(&o.size, "size", 20, "page size")
}

// translate builds and compiles a query over the named entity.
func (a *app) translate(name string, o *queryOptions, shapeSpec string) (*managers.Translation, error) {
	m, err := a.mapping(name)
	if err != nil {
		return nil, err
	}
	q, err := o.build(managers.From(&m.Meta))
	if err != nil {
		return nil, err
	}
	shape, err := parseShape(shapeSpec)
	if err != nil {
		return nil, err
	}
	if shapeSpec == "" && o.fields != "" {
		shape = managers.Columns(parseFields(o.fields)...)
	}
	var topts []managers.TranslateOption
	if o.page > 0 {
		topts = append(topts, managers.WithPaging(o.page, o.size))
	}
	return managers.Translate(q, shape, a.dialect(), topts...)
}

type translationDump struct {
	Dialect string   `yaml:"dialect"`
	Shape   string   `yaml:"shape"`
	SQL     string   `yaml:"sql"`
	Columns []string `yaml:"columns,omitempty"`
}

func writeYAML(w io.Writer, d visitors.Dialect, t *managers.Translation) error {
	dump := translationDump{Dialect: string(d), Shape: t.Shape.String(), SQL: t.SQL}
	if t.Reader != nil {
		dump.Columns = t.Reader.Columns()
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(dump); err != nil {
		return err
	}
	return enc.Close()
}
