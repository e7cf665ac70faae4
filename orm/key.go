package orm

import "strings"

const (
	// IDField 每条记录都必须有的主键字段
	IDField = "id"

	// KeyField 搜索结果中附加的文档 key
	KeyField = "key"
)

// buildKey 生成 [prefix:]entity[:id]
func buildKey(prefix string, entity string, id string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, entity)
	if id != "" {
		parts = append(parts, id)
	}
	return strings.Join(parts, ":")
}

// BuildKey 返回 entity 下 id 对应的存储 key
func (o *ORM) BuildKey(entity string, id string) string {
	return buildKey(o.keyPrefix, entity, id)
}

func (o *ORM) membershipKey(entity string) string {
	return buildKey(o.keyPrefix, entity+"s", "")
}

func (o *ORM) indexName(entity string) string {
	return buildKey(o.keyPrefix, entity, "idx")
}

// indexPrefix 索引只收录 entity 自己命名空间下的 key
func (o *ORM) indexPrefix(entity string) string {
	return buildKey(o.keyPrefix, entity, "") + ":"
}
