//go:build integration

package syncintegration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Black-And-White-Club/shuttle-sync/integration_tests/testutils"
)

func TestMain(m *testing.M) {
	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	testutils.Shutdown(ctx)
	os.Exit(code)
}
