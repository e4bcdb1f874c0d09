package repository

import (
	"io"

	"github.com/okian/singalong/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithOutput(io.Discard))
}
