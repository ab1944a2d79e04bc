package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ergochat/readline"
	"github.com/spf13/cobra"

	"github.com/erymuzuan/motorent-sub003/visitors"
)

func newShellCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Build and run queries interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				return runShell(cmd.Context(), a)
			})
		},
	}
}

func runShell(ctx context.Context, a *app) error {
	sess := newSession(ctx, a)
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          sess.prompt(),
		HistoryFile:     historyPath(),
		HistoryLimit:    500,
		AutoComplete:    &shellCompleter{sess: sess},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(a.out, "jsonq shell: type 'help' for commands, 'exit' to quit")
	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if lower := strings.ToLower(line); lower == "exit" || lower == "quit" {
			return nil
		}
		if err := sess.Execute(line); err != nil {
			_, _ = fmt.Fprintf(a.out, "  Error: %v\n", err)
		}
		rl.SetPrompt(sess.prompt())
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jsonq_history")
}

// commandEntry maps a command prefix to its handler.
type commandEntry struct {
	prefix  string
	handler func(args string) error
}

// session is the state of one shell: the entity being queried and the
// operators applied to it so far.
type session struct {
	ctx      context.Context
	app      *app
	entity   string
	query    queryOptions
	total    bool
	commands []commandEntry
}

func newSession(ctx context.Context, a *app) *session {
	s := &session{ctx: ctx, app: a, query: queryOptions{size: 20}}
	if len(a.cfg.Entities) > 0 {
		s.entity = a.cfg.Entities[0].Name
	}
	s.initCommands()
	return s
}

func (s *session) prompt() string {
	if s.entity == "" {
		return "jsonq> "
	}
	return "jsonq:" + s.entity + "> "
}

// initCommands builds the registry, longest prefix first.
func (s *session) initCommands() {
	s.commands = []commandEntry{
		{prefix: "use ", handler: s.cmdUse},
		{prefix: "entities", handler: func(string) error { return s.cmdEntities() }},
		{prefix: "where ", handler: s.cmdWhere},
		{prefix: "order ", handler: s.cmdOrder},
		{prefix: "fields ", handler: s.cmdFields},
		{prefix: "page ", handler: s.cmdPage},
		{prefix: "total ", handler: s.cmdTotal},
		{prefix: "dialect ", handler: s.cmdDialect},
		{prefix: "tenant ", handler: s.cmdTenant},
		{prefix: "reset", handler: func(string) error { return s.cmdReset() }},
		{prefix: "show", handler: func(string) error { return s.cmdShow() }},
		{prefix: "sql ", handler: func(a string) error { return s.cmdSQL(a) }},
		{prefix: "sql", handler: func(string) error { return s.cmdSQL("") }},
		{prefix: "yaml", handler: func(string) error { return s.cmdYAML() }},
		{prefix: "dot", handler: func(string) error { return s.cmdDot() }},
		{prefix: "load", handler: func(string) error { return s.cmdLoad() }},
		{prefix: "count", handler: func(string) error { return s.cmdCount() }},
		{prefix: "stats", handler: func(string) error { return renderMetrics(s.app.out, s.app.registry) }},
		{prefix: "help", handler: func(string) error { s.cmdHelp(); return nil }},
	}
	sort.SliceStable(s.commands, func(i, j int) bool {
		return len(s.commands[i].prefix) > len(s.commands[j].prefix)
	})
}

// Execute runs one shell line.
func (s *session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)
	for _, c := range s.commands {
		if strings.HasPrefix(lower, c.prefix) {
			return c.handler(strings.TrimSpace(line[len(c.prefix):]))
		}
	}
	return fmt.Errorf("unknown command: %s", strings.Fields(line)[0])
}

// commandNames lists the command words for completion.
func (s *session) commandNames() []string {
	seen := map[string]bool{"exit": true, "quit": true}
	names := []string{"exit", "quit"}
	for _, c := range s.commands {
		name := strings.TrimRight(c.prefix, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *session) requireEntity() error {
	if s.entity == "" {
		return errors.New("no entity selected: use <entity>")
	}
	return nil
}

func (s *session) cmdUse(name string) error {
	if _, err := s.app.cfg.Entity(name); err != nil {
		return err
	}
	s.entity = name
	return s.cmdReset()
}

func (s *session) cmdEntities() error {
	rows := make([][]string, len(s.app.cfg.Entities))
	for i, e := range s.app.cfg.Entities {
		rows[i] = []string{e.Schema, e.Name, strconv.Itoa(len(e.Columns)), e.SoftDelete}
	}
	renderTable(s.app.out, []string{"schema", "name", "columns", "soft delete"}, rows)
	return nil
}

func (s *session) cmdWhere(arg string) error {
	if _, err := parseFilter(arg); err != nil {
		return err
	}
	s.query.where = append(s.query.where, arg)
	return nil
}

func (s *session) cmdOrder(arg string) error {
	if _, err := parseOrder(arg); err != nil {
		return err
	}
	s.query.order = arg
	return nil
}

func (s *session) cmdFields(arg string) error {
	if strings.EqualFold(arg, "off") {
		arg = ""
	}
	s.query.fields = arg
	return nil
}

// cmdPage takes "<page> [size]" or "off".
func (s *session) cmdPage(arg string) error {
	if strings.EqualFold(arg, "off") {
		s.query.page = 0
		return nil
	}
	words := strings.Fields(arg)
	if len(words) == 0 || len(words) > 2 {
		return errors.New("usage: page <page> [size] | page off")
	}
	page, err := strconv.Atoi(words[0])
	if err != nil || page < 1 {
		return fmt.Errorf("invalid page %q", words[0])
	}
	if len(words) == 2 {
		size, err := strconv.Atoi(words[1])
		if err != nil || size < 1 {
			return fmt.Errorf("invalid size %q", words[1])
		}
		s.query.size = size
	}
	s.query.page = page
	return nil
}

func (s *session) cmdTotal(arg string) error {
	switch strings.ToLower(arg) {
	case "on":
		s.total = true
	case "off":
		s.total = false
	default:
		return errors.New("usage: total on|off")
	}
	return nil
}

func (s *session) cmdDialect(arg string) error {
	d, err := visitors.ParseDialect(arg)
	if err != nil {
		return err
	}
	if s.app.conn != nil && s.app.conn.Dialect() != d {
		return fmt.Errorf("connected with %s; the dialect cannot change", s.app.conn.Dialect())
	}
	s.app.cfg.Database.Dialect = string(d)
	return nil
}

func (s *session) cmdTenant(arg string) error {
	s.app.opts.tenant = arg
	return nil
}

func (s *session) cmdReset() error {
	s.query = queryOptions{size: s.query.size}
	return nil
}

func (s *session) cmdShow() error {
	out := s.app.out
	_, _ = fmt.Fprintf(out, "  ENTITY:  %s\n", s.entity)
	for _, w := range s.query.where {
		_, _ = fmt.Fprintf(out, "  WHERE:   %s\n", w)
	}
	if s.query.order != "" {
		_, _ = fmt.Fprintf(out, "  ORDER:   %s\n", s.query.order)
	}
	if s.query.fields != "" {
		_, _ = fmt.Fprintf(out, "  FIELDS:  %s\n", s.query.fields)
	}
	if s.query.page > 0 {
		_, _ = fmt.Fprintf(out, "  PAGE:    %d (size %d)\n", s.query.page, s.query.size)
	}
	_, _ = fmt.Fprintf(out, "  DIALECT: %s\n", s.app.dialect())
	return nil
}

func (s *session) cmdSQL(shape string) error {
	if err := s.requireEntity(); err != nil {
		return err
	}
	t, err := s.app.translate(s.entity, &s.query, shape)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.app.out, t.SQL)
	return err
}

func (s *session) cmdYAML() error {
	if err := s.requireEntity(); err != nil {
		return err
	}
	t, err := s.app.translate(s.entity, &s.query, "")
	if err != nil {
		return err
	}
	return writeYAML(s.app.out, s.app.dialect(), t)
}

func (s *session) cmdDot() error {
	if err := s.requireEntity(); err != nil {
		return err
	}
	t, err := s.app.translate(s.entity, &s.query, "")
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(s.app.out, visitors.Dot(t.Statement))
	return err
}

func (s *session) cmdLoad() error {
	if err := s.requireEntity(); err != nil {
		return err
	}
	return s.app.load(s.ctx, s.entity, &s.query, s.total)
}

func (s *session) cmdCount() error {
	if err := s.requireEntity(); err != nil {
		return err
	}
	return s.app.count(s.ctx, s.entity, &s.query)
}

func (s *session) cmdHelp() {
	_, _ = fmt.Fprint(s.app.out, `Commands:
  use <entity>              select the entity to query
  entities                  list declared entities
  where <filter>            add a filter, e.g. where Price > 10 and Name startswith 'F'
  order <keys>              set the ordering, e.g. order Price desc, Name
  fields <a,b> | off        read only these fields
  page <n> [size] | off     page the results
  total on|off              count all rows when loading a page
  dialect <name>            format for another dialect
  tenant <id>               tenant for cached reads and scoped entities
  reset                     clear filters, ordering and paging
  show                      show the current query
  sql [shape]               print the SQL, e.g. sql count, sql max:Price
  yaml                      print the translation as YAML
  dot                       print the statement tree in Graphviz DOT
  load                      run the query
  count                     count matching rows
  stats                     execution and cache counters
  exit                      leave the shell
`)
}

// shellCompleter implements readline's AutoCompleter.
type shellCompleter struct {
	sess *session
}

// Do completes command names at the start of a line, entity names after
// "use" and field names after the query-building commands.
func (c *shellCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	text := string(line[:pos])
	word := lastWord(text)
	head := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(text, word)))

	var candidates []string
	switch {
	case head == "":
		candidates = c.sess.commandNames()
	case head == "use":
		for _, e := range c.sess.app.cfg.Entities {
			candidates = append(candidates, e.Name)
		}
	case strings.HasPrefix(head, "where") || strings.HasPrefix(head, "order") || strings.HasPrefix(head, "fields"):
		candidates = c.fieldNames()
	}

	for _, cand := range candidates {
		if strings.HasPrefix(strings.ToLower(cand), strings.ToLower(word)) {
			newLine = append(newLine, []rune(cand[len(word):]+" "))
		}
	}
	return newLine, len([]rune(word))
}

func (c *shellCompleter) fieldNames() []string {
	meta, err := c.sess.app.cfg.Entity(c.sess.entity)
	if err != nil {
		return nil
	}
	names := []string{meta.KeyColumn()}
	for _, col := range meta.Columns {
		names = append(names, col.Field)
	}
	return names
}

// lastWord returns the trailing token being typed, split on spaces and
// commas.
func lastWord(text string) string {
	i := strings.LastIndexAny(text, " ,(")
	return text[i+1:]
}
