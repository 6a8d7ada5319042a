package typeinfer

import (
	"math"
	"math/big"
	"testing"

	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/stretchr/testify/assert"
)

func intFrame(name string, values ...any) *frame.Frame {
	f := frame.New(frame.Column{Name: name, Kind: frame.Int})
	for _, v := range values {
		f.Append(v)
	}
	return f
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name  string
		frame *frame.Frame
		want  Classification
	}{
		{
			name:  "fits int32",
			frame: intFrame("sizerank", int64(-50), int64(2000000000)),
			want:  Classification{"sizerank": Int},
		},
		{
			name:  "exceeds int32",
			frame: intFrame("total_transaction_value", int64(-50), int64(3000000000)),
			want:  Classification{"total_transaction_value": BigInt},
		},
		{
			name:  "below int32",
			frame: intFrame("x", int64(-2147483649), int64(0)),
			want:  Classification{"x": BigInt},
		},
		{
			name:  "int32 boundaries",
			frame: intFrame("x", int64(-2147483648), int64(2147483647)),
			want:  Classification{"x": Int},
		},
		{
			name:  "missing cells ignored",
			frame: intFrame("x", nil, int64(7), nil),
			want:  Classification{"x": Int},
		},
		{
			name:  "wider than int64",
			frame: intFrame("x", int64(1), new(big.Int).SetUint64(math.MaxUint64)),
			want:  Classification{"x": BigInt},
		},
		{
			name:  "all missing",
			frame: intFrame("x", nil, nil),
			want:  Classification{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Infer(tt.frame))
		})
	}
}

func TestInfer_NonIntegerColumnsAbsent(t *testing.T) {
	f := frame.New(
		frame.Column{Name: "regionid", Kind: frame.Int},
		frame.Column{Name: "zhvi", Kind: frame.Float},
		frame.Column{Name: "regionname", Kind: frame.String},
		frame.Column{Name: "date", Kind: frame.Date},
	)
	f.Append(int64(394913), 1.5, "New York, NY", nil)

	cls := Infer(f)
	assert.Equal(t, Classification{"regionid": Int}, cls)
	assert.NotContains(t, cls, "zhvi")
	assert.Equal(t, []string{"regionid"}, cls.Columns())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Int, Classify(0, 0))
	assert.Equal(t, BigInt, Classify(0, 1<<31))
}
