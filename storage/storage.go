package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
	appfs "github.com/trezcool/marksheet/fs"
	"github.com/trezcool/marksheet/storage/database"
	inmemdb "github.com/trezcool/marksheet/storage/database/inmem"
	boiledrepos "github.com/trezcool/marksheet/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/marksheet/storage/database/sqlx"
)

const demoDataset = "seed/demo.yaml"

// Repositories are the stores the services run on.
type Repositories struct {
	DB        *sqlx.DB // nil with memory storage
	School    school.Repository
	Templates marksheet.Repository
}

// Open sets up the repositories of conf.Storage. Postgres databases are created when missing
// and, if migrate is set, brought up to date. Memory storage starts with the demo school.
func Open(ctx context.Context, conf *core.Config, migrate bool) (*Repositories, error) {
	switch conf.Storage {
	case core.StoragePostgres:
		return openPostgres(ctx, conf, migrate)
	case core.StorageMemory:
		db := inmemdb.Open()
		repos := &Repositories{
			School:    inmemdb.NewSchoolRepository(db),
			Templates: inmemdb.NewTemplateRepository(db),
		}
		ds, err := DemoDataset()
		if err != nil {
			return nil, err
		}
		if err = repos.School.Import(ctx, ds); err != nil {
			return nil, errors.Wrap(err, "importing demo dataset")
		}
		return repos, nil
	default:
		return nil, errors.Errorf("unknown storage %q", conf.Storage)
	}
}

func openPostgres(ctx context.Context, conf *core.Config, migrate bool) (*Repositories, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if migrate {
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Repositories{
		DB:        db,
		School:    boiledrepos.NewSchoolRepository(db),
		Templates: sqlxrepos.NewTemplateRepository(db),
	}, nil
}

// DemoDataset is the embedded demo school.
func DemoDataset() (school.Dataset, error) {
	data, err := appfs.FS.ReadFile(demoDataset)
	if err != nil {
		return school.Dataset{}, errors.Wrap(err, "reading demo dataset")
	}
	return school.ParseDataset(data)
}

func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
