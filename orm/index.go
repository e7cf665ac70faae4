package orm

import (
	"context"

	"github.com/hatlonely/hashorm/store"
)

func (h *Hash) indexDefinition(fields []IndexField) (*store.IndexDefinition, error) {
	if len(fields) == 0 {
		return nil, &ConfigurationError{Entity: h.name, Reason: "search index requires at least one field"}
	}

	def := &store.IndexDefinition{
		Name:     h.indexName,
		Prefixes: []string{h.orm.indexPrefix(h.name)},
		Fields:   make([]store.IndexField, 0, len(fields)),
	}
	for _, field := range fields {
		spec, ok := h.fields[field.Field]
		if !ok {
			return nil, &ConfigurationError{Entity: h.name, Field: field.Field, Reason: "index field is not in schema"}
		}
		if field.Type == "" {
			field.Type = indexFieldType(spec.Type().Kind())
		}
		def.Fields = append(def.Fields, field)
	}
	return def, nil
}

func indexFieldType(kind Kind) store.IndexFieldType {
	switch kind {
	case KindInteger, KindFloat:
		return store.IndexFieldNumeric
	case KindBoolean:
		return store.IndexFieldTag
	}
	return store.IndexFieldText
}

// provisionIndex 先删除再创建索引，失败只记录 warn 日志
func (h *Hash) provisionIndex(ctx context.Context, def *store.IndexDefinition) {
	if err := h.orm.store.DropIndex(ctx, def.Name); err != nil {
		h.logger.DebugContext(ctx, "drop index failed, it may not exist yet",
			"error", &IndexProvisioningError{Index: def.Name, Op: "drop", Err: err})
	}

	if err := h.orm.store.CreateIndex(ctx, def); err != nil {
		h.logger.WarnContext(ctx, "create index failed",
			"error", &IndexProvisioningError{Index: def.Name, Op: "create", Err: err})
		return
	}

	h.logger.InfoContext(ctx, "index created", "index", def.Name, "fields", len(def.Fields))
}
