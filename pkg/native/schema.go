package native

import "github.com/clickhouse-wire/chwire/pkg/chtype"

// SchemaColumn describes one column of a Native block schema: its name
// and declared type.
type SchemaColumn struct {
	Name string
	Type *chtype.TypeDesc
}

// Schema is the ordered column list a StreamWriter writes Native blocks
// against.
type Schema []SchemaColumn

// IndexOf returns the position of the column named name, or -1 if no
// column has that name.
func (s Schema) IndexOf(name string) int {
	for i, col := range s {
		if col.Name == name {
			return i
		}
	}
	return -1
}
