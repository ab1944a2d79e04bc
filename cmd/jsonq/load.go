package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erymuzuan/motorent-sub003/managers"
)

type loadOptions struct {
	queryOptions
	total bool
}

func newLoadCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &loadOptions{}
	cmd := &cobra.Command{
		Use:   "load <entity>",
		Short: "Load a page of entities",
		Long: `Load entities from the configured database and print them as a table.

With --fields only those fields are read, for every matching row.

Example:
  jsonq load Widget --where "Address.City = 'Ipoh'" --order Price --page 2 --size 10 --total`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				return a.load(cmd.Context(), args[0], &opts.queryOptions, opts.total)
			})
		},
	}
	addQueryFlags(cmd, &opts.queryOptions)
	cmd.Flags().BoolVar(&opts.total, "total", false, "also count every matching row")
	return cmd
}

func newCountCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "count <entity>",
		Short: "Count matching entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				return a.count(cmd.Context(), args[0], opts)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&opts.where, "where", "w", nil, "filter; repeatable")
	return cmd
}

func (a *app) load(ctx context.Context, name string, o *queryOptions, total bool) error {
	ctx = a.context(ctx)
	repo, err := a.repo(ctx, name)
	if err != nil {
		return err
	}
	q, err := o.build(repo.Query())
	if err != nil {
		return err
	}

	if o.fields != "" {
		fields := parseFields(o.fields)
		t, err := managers.Translate(q, managers.Columns(fields...), a.dialect())
		if err != nil {
			return err
		}
		records, err := repo.Reader(ctx, q, fields...)
		if err != nil {
			return err
		}
		renderRecords(a.out, t.Reader.Columns(), records)
		return nil
	}

	page, size := o.page, o.size
	if page < 1 {
		page = 1
	}
	meta, _ := a.cfg.Entity(name)
	if a.cached() {
		p, err := repo.LoadCached(ctx, q, page, size, total, a.cfg.Cache.TTL)
		if err != nil {
			return err
		}
		renderPage(a.out, meta, p, total)
		return nil
	}
	p, err := repo.Load(ctx, q, page, size, total)
	if err != nil {
		return err
	}
	renderPage(a.out, meta, p, total)
	return nil
}

func (a *app) count(ctx context.Context, name string, o *queryOptions) error {
	ctx = a.context(ctx)
	repo, err := a.repo(ctx, name)
	if err != nil {
		return err
	}
	q, err := o.build(repo.Query())
	if err != nil {
		return err
	}
	var n int64
	if a.cached() {
		n, err = repo.CountCached(ctx, q, a.cfg.Cache.TTL)
	} else {
		n, err = repo.Count(ctx, q)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, n)
	return err
}
