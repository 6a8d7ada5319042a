package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnify(t *testing.T) {
	tests := []struct {
		a, b Kind
		want Kind
	}{
		{Int, Int, Int},
		{Null, Int, Int},
		{Float, Null, Float},
		{Int, Float, Float},
		{Float, Int, Float},
		{Int, Date, String},
		{Date, Date, Date},
		{String, Null, String},
		{Float, String, String},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"+"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Unify(tt.a, tt.b))
		})
	}
}

func TestFormatValue(t *testing.T) {
	d := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"int", int64(-42), "-42"},
		{"whole float keeps decimal point", 3.0, "3.0"},
		{"fractional float", 120000.5, "120000.5"},
		{"date", d, "2020-01-31"},
		{"string", "New York, NY", "New York, NY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, 5.0, Coerce(int64(5), Float))
	assert.Equal(t, "5", Coerce(int64(5), String))
	assert.Equal(t, "2.5", Coerce(2.5, String))
	assert.Nil(t, Coerce(nil, Int))
	assert.Nil(t, Coerce("x", Int))
}

func TestFrame_Accessors(t *testing.T) {
	f := New(Column{Name: "RegionID", Kind: Int}, Column{Name: "RegionName", Kind: String})
	f.Append(int64(1), "United States")
	f.LowercaseHeaders()

	assert.Equal(t, []string{"regionid", "regionname"}, f.Names())
	assert.Equal(t, 1, f.ColumnIndex("regionname"))
	assert.Equal(t, -1, f.ColumnIndex("RegionName"))

	v, ok := f.Value(0, "regionname")
	assert.True(t, ok)
	assert.Equal(t, "United States", v)

	_, ok = f.Value(1, "regionname")
	assert.False(t, ok)
}
