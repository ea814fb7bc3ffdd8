package entdriver

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	entschema "github.com/papercomputeco/flowstream/pkg/storage/ent/schema"
)

// Tables returns the migration tables described by the ent schemas.
func Tables() ([]*schema.Table, error) {
	sessions, err := tableOf(sessionsTable, "session", entschema.Session{})
	if err != nil {
		return nil, err
	}
	return []*schema.Table{sessions}, nil
}

// Migrate runs ent's auto-migration. It only appends: new tables, columns and
// indexes are created, nothing is dropped.
func Migrate(ctx context.Context, drv *entsql.Driver) error {
	tables, err := Tables()
	if err != nil {
		return err
	}

	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("failed to prepare migration: %w", err)
	}
	if err := migrate.Create(ctx, tables...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// tableOf maps an ent schema onto a migration table. The schema must declare
// its own "id" field, which becomes the primary key.
func tableOf(name, entity string, s ent.Interface) (*schema.Table, error) {
	t := &schema.Table{Name: name}
	byName := map[string]*schema.Column{}

	for _, f := range s.Fields() {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entity, d.Name, d.Err)
		}

		col := &schema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional,
			Default:  d.Default,
		}
		if d.StorageKey != "" {
			col.Name = d.StorageKey
		}

		t.Columns = append(t.Columns, col)
		byName[d.Name] = col
	}

	id, ok := byName["id"]
	if !ok {
		return nil, fmt.Errorf("%s: schema has no id field", entity)
	}
	t.PrimaryKey = []*schema.Column{id}

	for _, i := range s.Indexes() {
		d := i.Descriptor()
		idx := &schema.Index{
			Name:   entity + "_" + strings.Join(d.Fields, "_"),
			Unique: d.Unique,
		}
		if d.StorageKey != "" {
			idx.Name = d.StorageKey
		}
		for _, f := range d.Fields {
			col, ok := byName[f]
			if !ok {
				return nil, fmt.Errorf("%s: index on unknown field %q", entity, f)
			}
			idx.Columns = append(idx.Columns, col)
		}
		t.Indexes = append(t.Indexes, idx)
	}

	return t, nil
}
