package simulate

import (
	"os"
	"testing"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// TestMain initializes the global logger that constructors fall back to.
func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
