package postgres

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rhuss/codeinterp/pkg/warehouse"
)

// normalize converts pgx's decoded values to frame cell types. json and
// jsonb columns arrive as maps and slices and are kept as is.
func normalize(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Interval:
		if !x.Valid {
			return nil
		}
		iv, _ := x.Value()
		return iv
	case map[string]any, []any:
		return x
	default:
		return warehouse.NormalizeValue(v)
	}
}
