package testsupport

import (
	"io"

	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
)

// Logger returns a logger that writes nowhere.
func Logger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
