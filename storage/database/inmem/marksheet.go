package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/marksheet"
)

type templateRepository struct {
	db *templateTable
}

var _ marksheet.Repository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *DB) *templateRepository {
	return &templateRepository{db: db.template}
}

// copyTemplate detaches tpl from the caller; stored templates never share elements.
func copyTemplate(tpl marksheet.Template) marksheet.Template {
	tpl.SavedDocument = tpl.SavedDocument.Clone()
	tpl.Warnings = nil
	return tpl
}

func (repo *templateRepository) CreateTemplate(_ context.Context, tpl marksheet.Template, _ ...core.DBExecutor) (marksheet.Template, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tpl = copyTemplate(tpl)
	repo.db.table[tpl.TemplateID] = tpl
	return copyTemplate(tpl), nil
}

func (repo *templateRepository) UpdateTemplate(_ context.Context, tpl marksheet.Template, _ ...core.DBExecutor) (marksheet.Template, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	old, ok := repo.db.table[tpl.TemplateID]
	if !ok {
		return marksheet.Template{}, marksheet.ErrNotFound
	}
	tpl = copyTemplate(tpl)
	tpl.CreatedAt = old.CreatedAt
	repo.db.table[tpl.TemplateID] = tpl
	return copyTemplate(tpl), nil
}

func (repo *templateRepository) GetTemplate(_ context.Context, id string, _ ...core.DBExecutor) (marksheet.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tpl, ok := repo.db.table[id]; ok {
		return copyTemplate(tpl), nil
	}
	return marksheet.Template{}, marksheet.ErrNotFound
}

func (repo *templateRepository) QueryTemplates(
	_ context.Context,
	filter *marksheet.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]marksheet.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	templates := make([]marksheet.Template, 0, len(repo.db.table))
	for _, tpl := range repo.db.table {
		if filter != nil && !matches(tpl, filter) {
			continue
		}
		templates = append(templates, copyTemplate(tpl))
	}

	// map order is random: ids break ties
	sort.Slice(templates, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareTemplates(templates[i], templates[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return templates[i].TemplateID < templates[j].TemplateID
	})
	return templates, nil
}

func (repo *templateRepository) DeleteTemplate(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return marksheet.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func matches(tpl marksheet.Template, filter *marksheet.QueryFilter) bool {
	if filter.ClassID != "" && tpl.ClassID != filter.ClassID {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		return strings.Contains(strings.ToLower(tpl.TemplateName), search) ||
			strings.Contains(strings.ToLower(tpl.InstitutionName), search)
	}
	return true
}

func compareTemplates(a, b marksheet.Template, field string) int {
	switch field {
	case marksheet.OrderByTemplateName:
		return strings.Compare(strings.ToLower(a.TemplateName), strings.ToLower(b.TemplateName))
	case marksheet.OrderByCreatedAt:
		return compareTimes(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case marksheet.OrderByUpdatedAt:
		return compareTimes(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
	}
	return 0
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
