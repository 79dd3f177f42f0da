package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need the postgres storage")
)

type commandLine struct {
	db        *sqlx.DB // nil with memory storage
	schoolSvc school.Service
	tplSvc    marksheet.Service
	stdout    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status...) on the database")
	fmt.Println("  export -template ID [-out FILE] - write a template's HTML with its placeholders")
	fmt.Println("  preview -template ID -student ID [-test ID] [-keyset ID] [-out FILE] - render a student's marksheet")
	fmt.Println("  seed [-file FILE] - import a YAML or JSON dataset, the demo school by default")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportTpl := exportCmd.String("template", "", "The template id.")
	exportOut := exportCmd.String("out", "", "Output file. Defaults to stdout, or TEMPLATE.html on a terminal.")

	previewCmd := flag.NewFlagSet("preview", flag.ContinueOnError)
	previewTpl := previewCmd.String("template", "", "The template id.")
	previewStd := previewCmd.String("student", "", "The student id.")
	previewTest := previewCmd.String("test", "", "The test id. Defaults to the latest test of the class.")
	previewKeySet := previewCmd.String("keyset", "", "A key set mapping custom placeholders to student fields.")
	previewOut := previewCmd.String("out", "", "Output file. Defaults to stdout, or TEMPLATE-STUDENT.html on a terminal.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedFile := seedCmd.String("file", "", "The dataset file.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportTpl == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(ctx, *exportTpl, *exportOut)
	case "preview":
		if err := previewCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *previewTpl == "" || *previewStd == "" {
			previewCmd.Usage()
			return errHelp
		}
		req := marksheet.PreviewRequest{StudentID: *previewStd, TestID: *previewTest, KeySetID: *previewKeySet}
		return cli.preview(ctx, *previewTpl, req, *previewOut)
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.seed(ctx, *seedFile)
	default:
		cli.printUsage()
		return errHelp
	}
}

// write sends html to file, to stdout when it is piped, or to defaultFile on a terminal.
func (cli *commandLine) write(html, file, defaultFile string) error {
	if file == "" {
		if !isTerminalFunc(int(os.Stdout.Fd())) {
			_, err := io.WriteString(cli.stdout, html)
			return err
		}
		file = defaultFile
	}
	if err := os.WriteFile(file, []byte(html), 0o644); err != nil {
		return errors.Wrap(err, "writing HTML")
	}
	logger.Printf("wrote %s", file)
	return nil
}
