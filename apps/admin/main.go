package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
	emailsvc "github.com/trezcool/marksheet/services/email"
	logsvc "github.com/trezcool/marksheet/services/logger"
	"github.com/trezcool/marksheet/storage"
)

var logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

func main() {
	conf := core.NewConfig()

	// set up storage; migrations are run through the CLI
	repos, err := storage.Open(context.Background(), conf, false)
	errAndDie(err)

	// set up services
	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)
	schoolSvc := school.NewService(repos.School)
	tplSvc := marksheet.NewService(repos.Templates, schoolSvc, emailsvc.NewConsoleService(conf, svcLogger), svcLogger)

	// start CLI
	cli := commandLine{
		db:        repos.DB,
		schoolSvc: schoolSvc,
		tplSvc:    tplSvc,
		stdout:    os.Stdout,
	}
	err = cli.run(os.Args)
	_ = repos.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
