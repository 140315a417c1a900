// Command repl is the line-oriented front end for the database engine:
// it reads one line of SQL at a time, runs it through the parser,
// planner, optimiser, and executor, and prints the resulting rows.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/basedb/internal/catalog"
	"github.com/SimonWaldherr/basedb/internal/maintenance"
	"github.com/SimonWaldherr/basedb/internal/optimiser"
	"github.com/SimonWaldherr/basedb/internal/planner"
	"github.com/SimonWaldherr/basedb/internal/sqlfrontend"
	"github.com/SimonWaldherr/basedb/internal/storage/cache"
	"github.com/SimonWaldherr/basedb/internal/storage/disk"
	"github.com/SimonWaldherr/basedb/internal/storage/replacer"
	"github.com/SimonWaldherr/basedb/internal/tuple"

	execengine "github.com/SimonWaldherr/basedb/internal/execution"
)

const prompt = "(base) "

func main() {
	dbPath := flag.String("db", "db.base", "path to the backing page file")
	cacheSize := flag.Int("cache-size", 64, "number of frames in the buffer pool")
	k := flag.Int("k", 2, "K parameter for the LRU-K replacer")
	checkpoint := flag.Duration("checkpoint", 30*time.Second, "background checkpoint interval")
	flag.Parse()

	sessionID := uuid.New()
	log := slog.With("session", sessionID.String())

	d, err := disk.NewFile(*dbPath)
	if err != nil {
		log.Error("repl: open backing file", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer d.Close()

	pc := cache.New(d, replacer.New(*cacheSize, *k), *cacheSize, 0)
	cat := catalog.New(pc)
	pl := planner.New(cat)

	ck, err := maintenance.NewCheckpointer(pc, fmt.Sprintf("@every %s", checkpoint.String()), log)
	if err != nil {
		log.Error("repl: start checkpointer", "error", err)
		os.Exit(1)
	}
	ck.Start()
	defer ck.Stop()

	log.Info("repl: ready", "db", *dbPath, "cache_size", *cacheSize, "k", *k)
	run(os.Stdin, os.Stdout, pl, log)

	if err := pc.FlushAll(); err != nil {
		log.Error("repl: final flush", "error", err)
	}
}

// run drives the read-parse-plan-optimise-execute-print loop until in
// reaches EOF.
func run(in *os.File, out *os.File, pl *planner.Planner, log *slog.Logger) {
	scanner := bufio.NewScanner(in)
	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprint(w, prompt)
	w.Flush()
	for scanner.Scan() {
		line := scanner.Text()
		if err := runStatement(line, pl, w); err != nil {
			fmt.Fprintln(w, err.Error())
			log.Debug("repl: statement failed", "error", err)
		}
		fmt.Fprint(w, prompt)
		w.Flush()
	}
}

func runStatement(line string, pl *planner.Planner, w *bufio.Writer) error {
	stmt, err := sqlfrontend.Parse(line)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	plan, err := pl.PlanStatement(stmt)
	if err != nil {
		return fmt.Errorf("plan error: %w", err)
	}
	if plan == nil {
		// DDL statements (CREATE TABLE/INDEX) are applied directly
		// against the catalog and have no row-producing shape.
		return nil
	}

	plan = optimiser.Transform(plan)
	root, err := optimiser.Implement(plan)
	if err != nil {
		return fmt.Errorf("plan error: %w", err)
	}

	rows, err := execengine.Execute(context.Background(), root)
	if err != nil {
		return fmt.Errorf("execution error: %w", err)
	}

	schema := root.Schema()
	for _, row := range rows {
		printRow(w, schema, row)
	}
	return nil
}

// printRow prints one row as space-separated column values with a
// trailing space before the newline.
func printRow(w *bufio.Writer, schema *tuple.Schema, row tuple.Tuple) {
	for _, col := range schema.Columns {
		fmt.Fprint(w, tuple.ValueFrom(row, col).String())
		fmt.Fprint(w, " ")
	}
	fmt.Fprintln(w)
}
