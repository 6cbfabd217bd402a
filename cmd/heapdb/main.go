// Command heapdb is an interactive SQL shell over the heapdb storage and
// execution engine. It supports a restricted SELECT surface plus a small
// set of dot-commands for loading CSV-backed tables, in the spirit of a
// database client's meta-commands rather than full DDL.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/turinglake/heapdb/cmd/heapdb/query"
	"github.com/turinglake/heapdb/db"
)

const historyFile = "/tmp/heapdb_history.txt"

func main() {
	numPages := flag.Int("buffer-pages", 1000, "number of pages held by the buffer pool")
	flag.Parse()

	bp, err := db.NewBufferPool(*numPages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heapdb: %v\n", err)
		os.Exit(1)
	}
	cat := db.NewCatalog()
	sh := &shell{bp: bp, cat: cat}

	fmt.Println("heapdb - a teaching relational engine")
	fmt.Println("Type 'exit' or 'quit' to leave. Statements end with ';'.")
	fmt.Println("Use .load <table> <csv-path> <schema> to register a table, .tables to list them.")

	stdinStat, _ := os.Stdin.Stat()
	isPiped := (stdinStat.Mode() & os.ModeCharDevice) == 0
	if isPiped {
		sh.runBasicMode(os.Stdin)
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "heapdb> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		sh.runBasicMode(os.Stdin)
		return
	}
	defer rl.Close()

	var buf strings.Builder
	multiLine := false
	for {
		if multiLine {
			rl.SetPrompt("    -> ")
		} else {
			rl.SetPrompt("heapdb> ")
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if buf.Len() == 0 {
					fmt.Println("Goodbye!")
					return
				}
				buf.Reset()
				multiLine = false
				continue
			}
			if err == io.EOF {
				fmt.Println("Goodbye!")
				return
			}
			continue
		}

		if done := sh.feed(&buf, &multiLine, line); done {
			return
		}
	}
}

type shell struct {
	bp  *db.BufferPool
	cat *db.Catalog
}

// feed appends line to buf and, once a complete statement has accumulated
// (terminated by ';', or a recognized dot-command on its own), executes it.
// It reports whether the shell should exit.
func (sh *shell) feed(buf *strings.Builder, multiLine *bool, line string) bool {
	trimmed := strings.TrimSpace(line)

	if !*multiLine {
		if strings.HasPrefix(trimmed, "--") || trimmed == "" {
			return false
		}
		if trimmed == "exit" || trimmed == "quit" {
			fmt.Println("Goodbye!")
			return true
		}
		if strings.HasPrefix(trimmed, ".") {
			sh.runDotCommand(trimmed)
			return false
		}
	} else if strings.HasPrefix(trimmed, "--") {
		return false
	}

	if buf.Len() > 0 {
		buf.WriteString(" ")
	}
	buf.WriteString(line)

	current := strings.TrimSpace(buf.String())
	if strings.HasSuffix(current, ";") {
		buf.Reset()
		*multiLine = false
		sh.runSQL(current)
	} else {
		*multiLine = true
	}
	return false
}

func (sh *shell) runBasicMode(r io.Reader) {
	scanner := bufio.NewScanner(r)
	var buf strings.Builder
	multiLine := false
	for scanner.Scan() {
		if sh.feed(&buf, &multiLine, scanner.Text()) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "heapdb: %v\n", err)
	}
}

// runDotCommand handles the small set of meta-commands the shell offers
// outside the SQL surface: .load registers a CSV-backed table, .tables
// lists registered tables.
func (sh *shell) runDotCommand(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".tables":
		sh.cat.Range(func(name string) { fmt.Println(name) })
	case ".load":
		if len(fields) < 4 {
			fmt.Println("usage: .load <table> <csv-path> <col:type,...>")
			return
		}
		if err := sh.loadTable(fields[1], fields[2], fields[3]); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Loaded table %q from %s\n", fields[1], fields[2])
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}

// loadTable parses a "name:type,name:type" schema string, creates a
// HeapFile backed by a data file alongside the CSV (created if absent; an
// existing one is reused and the CSV rows are added to it), loads the CSV
// into it, and registers it in the catalog.
func (sh *shell) loadTable(name, csvPath, schema string) error {
	td, err := parseSchema(schema)
	if err != nil {
		return err
	}

	dataPath := csvPath + ".heapdb"
	file, err := db.NewHeapFile(dataPath, td, sh.bp)
	if err != nil {
		return err
	}

	csv, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer csv.Close()

	if err := file.LoadFromCSV(csv, true, ",", false); err != nil {
		return err
	}

	sh.cat.AddTable(name, file)
	return nil
}

func parseSchema(schema string) (*db.TupleDesc, error) {
	parts := strings.Split(schema, ",")
	fields := make([]db.FieldType, 0, len(parts))
	for _, p := range parts {
		nameType := strings.SplitN(p, ":", 2)
		if len(nameType) != 2 {
			return nil, fmt.Errorf("bad column spec %q, want name:type", p)
		}
		var ftype db.DBType
		switch strings.ToLower(nameType[1]) {
		case "int":
			ftype = db.IntType
		case "string":
			ftype = db.StringType
		default:
			return nil, fmt.Errorf("unknown column type %q", nameType[1])
		}
		fields = append(fields, db.FieldType{Fname: nameType[0], Ftype: ftype})
	}
	return db.NewTupleDesc(fields)
}

// runSQL compiles and runs a single SELECT statement, printing its result
// set as an aligned table.
func (sh *shell) runSQL(sql string) {
	plan, err := query.Compile(sql, sh.cat)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	tid := db.NewTID()
	if err := sh.bp.BeginTransaction(tid); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if err := runPlan(plan, tid); err != nil {
		sh.bp.AbortTransaction(tid)
		fmt.Printf("Error: %v\n", err)
		return
	}
	sh.bp.CommitTransaction(tid)
}

func runPlan(plan *query.Plan, tid db.TransactionID) error {
	root := plan.Root
	if err := root.Open(tid); err != nil {
		return err
	}
	defer root.Close()

	fmt.Println(root.TupleDesc().HeaderString(true))

	n := 0
	for {
		ok, err := root.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := root.Next()
		if err != nil {
			return err
		}
		fmt.Println(t.PrettyPrintString(true))
		n++
	}
	fmt.Printf("(%s)\n", plural(n, "row"))
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
