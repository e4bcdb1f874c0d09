package settings_test

import (
	"io"

	"github.com/okian/singalong/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}
