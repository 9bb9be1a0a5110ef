package database

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Plain converts a decoded column value into the form the server prints:
// numerics as decimal strings, uuids in canonical form, bytea as \x hex.
// Numbers, strings, booleans, times and JSON documents pass through.
func Plain(v any) any {
	switch x := v.(type) {
	case nil, string, bool, time.Time, map[string]any,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Plain(e)
		}
		return out
	case []byte:
		return `\x` + hex.EncodeToString(x)
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		return numericText(x)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return Plain(dv)
	case fmt.Stringer:
		return x.String()
	}
	return v
}

// Text renders v the way it is shown to users. NULL renders empty.
func Text(v any) string {
	switch p := Plain(v).(type) {
	case nil:
		return ""
	case string:
		return p
	case map[string]any, []any:
		if b, err := json.Marshal(p); err == nil {
			return string(b)
		}
		return fmt.Sprint(p)
	default:
		return fmt.Sprint(p)
	}
}

// numericText writes n in plain decimal notation, keeping its scale.
func numericText(n pgtype.Numeric) string {
	switch {
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	case n.Int == nil:
		return "0"
	}

	sign := ""
	if n.Int.Sign() < 0 {
		sign = "-"
	}
	digits := new(big.Int).Abs(n.Int).String()
	if n.Exp >= 0 {
		return sign + digits + strings.Repeat("0", int(n.Exp))
	}

	scale := int(-n.Exp)
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	point := len(digits) - scale
	return sign + digits[:point] + "." + digits[point:]
}
