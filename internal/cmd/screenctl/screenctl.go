// Package screenctl implements the screen document maintenance CLI.
package screenctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/billy1976-servant/screenloom/internal/generator"
	"github.com/billy1976-servant/screenloom/internal/screen/node"
	"github.com/billy1976-servant/screenloom/internal/state"
	"github.com/billy1976-servant/screenloom/internal/state/event"
	"github.com/billy1976-servant/screenloom/internal/storage/sqlite"
)

const usage = `usage: screenctl <command> [flags]

commands:
  validate <file>...    check screen documents against the schema
  migrate  <file>...    rewrite documents to the canonical layout form
  generate <script>     build a screen document from a Lua script
  list                  list stored screens, optionally filtered
  events                print the persisted event log
`

// Run dispatches a screenctl subcommand.
func Run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if len(args) == 0 {
		fmt.Fprint(errOut, usage)
		return errors.New("command is required")
	}

	switch args[0] {
	case "validate":
		return runValidate(args[1:], out)
	case "migrate":
		return runMigrate(args[1:], out)
	case "generate":
		return runGenerate(args[1:], out)
	case "list":
		return runList(ctx, args[1:], out)
	case "events":
		return runEvents(ctx, args[1:], out)
	default:
		fmt.Fprint(errOut, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// runValidate checks each file against the document schema and the parser.
func runValidate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("validate requires at least one file")
	}

	var failed bool
	for _, path := range fs.Args() {
		if err := validateFile(path); err != nil {
			failed = true
			fmt.Fprintf(out, "invalid %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok %s\n", path)
	}
	if failed {
		return errors.New("validation failed")
	}
	return nil
}

func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := node.ValidateDocument(data); err != nil {
		return err
	}
	_, err = node.Parse(data)
	return err
}

// runMigrate rewrites documents so legacy layout objects collapse to their
// canonical form. Parsing already accepts both shapes, so a migration is a
// parse followed by a canonical re-encode.
func runMigrate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	write := fs.Bool("w", false, "rewrite files in place instead of printing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("migrate requires at least one file")
	}

	for _, path := range fs.Args() {
		migrated, changed, err := migrateFile(path)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", path, err)
		}
		if *write {
			if !changed {
				fmt.Fprintf(out, "unchanged %s\n", path)
				continue
			}
			if err := os.WriteFile(path, migrated, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(out, "migrated %s\n", path)
			continue
		}
		if _, err := out.Write(migrated); err != nil {
			return err
		}
	}
	return nil
}

func migrateFile(path string) (migrated []byte, changed bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	doc, err := node.Parse(data)
	if err != nil {
		return nil, false, err
	}
	for i := range doc.Sections {
		if collapseLegacyLayouts(&doc.Sections[i]) {
			changed = true
		}
	}
	migrated, err = encodeDocument(doc)
	if err != nil {
		return nil, false, err
	}
	return migrated, changed || !jsonEqual(data, migrated), nil
}

// collapseLegacyLayouts rewrites preset-less layout objects to the flat
// reference shape: the object's type becomes the layout id and its params
// move onto the node, with existing node params winning.
func collapseLegacyLayouts(n *node.Node) (changed bool) {
	if spec := n.Layout.Spec; spec != nil && spec.Preset == "" && spec.Type != "" {
		if len(spec.Params) > 0 {
			params := make(map[string]any, len(spec.Params)+len(n.Params))
			for key, value := range spec.Params {
				params[key] = value
			}
			for key, value := range n.Params {
				params[key] = value
			}
			n.Params = params
		}
		n.Layout = node.LayoutRef{ID: spec.Type}
		changed = true
	}
	for i := range n.Children {
		if collapseLegacyLayouts(&n.Children[i]) {
			changed = true
		}
	}
	return changed
}

func jsonEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	ac, err := json.Marshal(av)
	if err != nil {
		return false
	}
	bc, err := json.Marshal(bv)
	if err != nil {
		return false
	}
	return string(ac) == string(bc)
}

// runGenerate builds a screen document from a Lua script.
func runGenerate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	outPath := fs.String("o", "", "write the document to a file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("generate requires exactly one script")
	}

	doc, err := generator.GenerateFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("generate %s: %w", fs.Arg(0), err)
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if *outPath != "" {
		return os.WriteFile(*outPath, data, 0o644)
	}
	_, err = out.Write(data)
	return err
}

// runList prints stored screens, optionally narrowed by a filter expression
// over key, title, template, and updated_at.
func runList(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	dbPath := fs.String("db-path", envOr("SCREENLOOM_DB_PATH", "data/screenloom.db"), "SQLite database path")
	filter := fs.String("filter", "", "filter expression")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	records, err := store.QueryScreens(ctx, *filter)
	if err != nil {
		return fmt.Errorf("query screens: %w", err)
	}
	for _, record := range records {
		fmt.Fprintf(out, "%s\t%s\n", record.Key, record.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// runEvents prints the persisted event log one line per event, oldest
// first.
func runEvents(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	dbPath := fs.String("db-path", envOr("SCREENLOOM_DB_PATH", "data/screenloom.db"), "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	data, found, err := store.LoadLog(ctx)
	if err != nil {
		return fmt.Errorf("load event log: %w", err)
	}
	if !found {
		return nil
	}
	events, err := state.DecodeLog(data)
	if err != nil {
		return fmt.Errorf("decode event log: %w", err)
	}
	return event.ExportHumanReadable(events, out)
}

func encodeDocument(doc node.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode screen document: %w", err)
	}
	return append(data, '\n'), nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
