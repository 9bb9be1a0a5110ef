package database

import (
	"math/big"
	"net/netip"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

var sampleUUID = [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 1, 2, 3, 4, 5, 6, 7, 8}

func numeric(i int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(i), Exp: exp, Valid: true}
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, ""},
		{"int", int32(7), "7"},
		{"string", "foo", "foo"},
		{"numeric", numeric(12345, -2), "123.45"},
		{"numeric below one", numeric(5, -3), "0.005"},
		{"negative numeric", numeric(-5, -3), "-0.005"},
		{"numeric keeps scale", numeric(150, -2), "1.50"},
		{"numeric positive exponent", numeric(12, 3), "12000"},
		{"numeric nan", pgtype.Numeric{NaN: true, Valid: true}, "NaN"},
		{"numeric infinity", pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}, "Infinity"},
		{"numeric null", pgtype.Numeric{}, ""},
		{"uuid", sampleUUID, "12345678-9abc-def0-0102-030405060708"},
		{"bytea", []byte{0xde, 0xad}, `\xdead`},
		{"valuer", pgtype.Text{String: "x", Valid: true}, "x"},
		{"stringer", netip.MustParseAddr("10.0.0.1"), "10.0.0.1"},
		{"json", map[string]any{"a": 1.0}, `{"a":1}`},
		{"array", []any{numeric(1, -1), nil}, `["0.1",null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestPlain_KeepsNativeScalars(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, Plain(ts))
	assert.Equal(t, int64(3), Plain(int64(3)))
	assert.Equal(t, true, Plain(true))
	assert.Equal(t, "12345678-9abc-def0-0102-030405060708", Plain(sampleUUID))
}

func TestRow_StringRendersServerText(t *testing.T) {
	row := &Row{
		Fields: []Field{{Name: "amount"}, {Name: "id"}},
		Values: []any{numeric(12345, -2), sampleUUID},
	}
	assert.Equal(t, "123.45", row.String(0))
	assert.Equal(t, "12345678-9abc-def0-0102-030405060708", row.String(1))
}
