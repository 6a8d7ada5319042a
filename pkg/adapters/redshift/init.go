package redshift

import (
	"log/slog"

	"github.com/leapstack-labs/zillowetl/pkg/adapter"
)

func init() {
	adapter.Register("redshift", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
