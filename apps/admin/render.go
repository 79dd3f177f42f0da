package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
	"github.com/trezcool/marksheet/storage"
)

func (cli *commandLine) export(ctx context.Context, tplID, out string) error {
	html, err := cli.tplSvc.Export(ctx, tplID)
	if err != nil {
		return err
	}
	return cli.write(html, out, tplID+".html")
}

func (cli *commandLine) preview(ctx context.Context, tplID string, req marksheet.PreviewRequest, out string) error {
	rendering, err := cli.tplSvc.Preview(ctx, tplID, req)
	if err != nil {
		return err
	}
	for _, ferr := range rendering.FormulaErrors {
		logger.Printf("warning: %v", ferr)
	}
	return cli.write(rendering.HTML, out, tplID+"-"+req.StudentID+".html")
}

func (cli *commandLine) seed(ctx context.Context, file string) error {
	var ds school.Dataset
	var err error
	if file == "" {
		ds, err = storage.DemoDataset()
	} else {
		var data []byte
		if data, err = os.ReadFile(file); err != nil {
			return errors.Wrap(err, "reading dataset")
		}
		ds, err = school.ParseDataset(data)
	}
	if err != nil {
		return err
	}
	if err = cli.schoolSvc.Import(ctx, ds); err != nil {
		return err
	}
	logger.Printf("imported %d students, %d marks", len(ds.Students), len(ds.Marks))
	return nil
}
