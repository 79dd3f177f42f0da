package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
	"github.com/trezcool/marksheet/core/marksheet"
)

const templateColumns = "id, class_id, template_name, institution_name, document, created_at, updated_at"

// orderable template fields and their columns
var templateOrderColumns = map[string]string{
	marksheet.OrderByTemplateName: "template_name",
	marksheet.OrderByCreatedAt:    "created_at",
	marksheet.OrderByUpdatedAt:    "updated_at",
}

type templateRow struct {
	ID              string         `db:"id"`
	ClassID         sql.NullString `db:"class_id"`
	TemplateName    string         `db:"template_name"`
	InstitutionName string         `db:"institution_name"`
	Document        types.JSONText `db:"document"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type templateRepository struct {
	db *sqlx.DB
}

var _ marksheet.Repository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *sqlx.DB) *templateRepository {
	return &templateRepository{db: db}
}

// getExec prefers the executor passed by the service (a *sqlx.Tx) over the repository's DB.
func (repo templateRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo templateRepository) toRow(tpl marksheet.Template) (templateRow, error) {
	doc := tpl.SavedDocument
	doc.TemplateID = tpl.TemplateID
	data, err := json.Marshal(doc)
	if err != nil {
		return templateRow{}, errors.Wrap(err, "encoding document")
	}
	return templateRow{
		ID:              tpl.TemplateID,
		ClassID:         sql.NullString{String: tpl.ClassID, Valid: tpl.ClassID != ""},
		TemplateName:    tpl.TemplateName,
		InstitutionName: tpl.InstitutionName,
		Document:        types.JSONText(data),
		CreatedAt:       tpl.CreatedAt.UTC(),
		UpdatedAt:       tpl.UpdatedAt.UTC(),
	}, nil
}

func (repo templateRepository) fromRow(row templateRow) (marksheet.Template, error) {
	var doc canvas.SavedDocument
	if err := row.Document.Unmarshal(&doc); err != nil {
		return marksheet.Template{}, errors.Wrapf(err, "decoding document of template %s", row.ID)
	}
	doc.TemplateID = row.ID
	return marksheet.Template{
		SavedDocument: doc,
		ClassID:       row.ClassID.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

// trapNoRowsErr maps psql "no rows" err to marksheet.ErrNotFound
func (repo templateRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return marksheet.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo templateRepository) CreateTemplate(ctx context.Context, tpl marksheet.Template, exec ...core.DBExecutor) (marksheet.Template, error) {
	row, err := repo.toRow(tpl)
	if err != nil {
		return marksheet.Template{}, err
	}
	q := `INSERT INTO marksheet_templates (` + templateColumns + `)
		VALUES (:id, :class_id, :template_name, :institution_name, :document, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return marksheet.Template{}, errors.Wrap(err, "inserting template")
	}
	return repo.fromRow(row)
}

func (repo templateRepository) UpdateTemplate(ctx context.Context, tpl marksheet.Template, exec ...core.DBExecutor) (marksheet.Template, error) {
	row, err := repo.toRow(tpl)
	if err != nil {
		return marksheet.Template{}, err
	}
	ext := repo.getExec(exec)
	q, args, err := sqlx.Named(`UPDATE marksheet_templates SET
			class_id = :class_id,
			template_name = :template_name,
			institution_name = :institution_name,
			document = :document,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING `+templateColumns, row)
	if err != nil {
		return marksheet.Template{}, errors.Wrap(err, "binding template")
	}

	var updated templateRow
	if err = sqlx.GetContext(ctx, ext, &updated, ext.Rebind(q), args...); err != nil {
		return marksheet.Template{}, repo.trapNoRowsErr(err, "updating template")
	}
	return repo.fromRow(updated)
}

func (repo templateRepository) GetTemplate(ctx context.Context, id string, exec ...core.DBExecutor) (marksheet.Template, error) {
	ext := repo.getExec(exec)
	q := ext.Rebind(`SELECT ` + templateColumns + ` FROM marksheet_templates WHERE id = ?`)

	var row templateRow
	if err := sqlx.GetContext(ctx, ext, &row, q, id); err != nil {
		return marksheet.Template{}, repo.trapNoRowsErr(err, "selecting template")
	}
	return repo.fromRow(row)
}

func (repo templateRepository) QueryTemplates(
	ctx context.Context,
	filter *marksheet.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]marksheet.Template, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.ClassID != "" {
			where = append(where, "class_id = ?")
			args = append(args, filter.ClassID)
		}
		if filter.Search != "" {
			where = append(where, "(template_name ILIKE ? OR institution_name ILIKE ?)")
			pattern := "%" + escapeLike(filter.Search) + "%"
			args = append(args, pattern, pattern)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT " + templateColumns + " FROM marksheet_templates")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	for _, ord := range ordering {
		col, ok := templateOrderColumns[ord.Field]
		if !ok {
			return nil, errors.Errorf("cannot order templates by %q", ord.Field)
		}
		b.WriteString(core.DBOrdering{Field: col, Ascending: ord.Ascending}.String() + ", ")
	}
	b.WriteString("id ASC")

	ext := repo.getExec(exec)
	var rows []templateRow
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(b.String()), args...); err != nil {
		return nil, errors.Wrap(err, "selecting templates")
	}

	templates := make([]marksheet.Template, 0, len(rows))
	for _, row := range rows {
		tpl, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

func (repo templateRepository) DeleteTemplate(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	res, err := ext.ExecContext(ctx, ext.Rebind(`DELETE FROM marksheet_templates WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting template")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting template")
	}
	if n == 0 {
		return marksheet.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
