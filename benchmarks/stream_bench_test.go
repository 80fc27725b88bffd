package benchmarks

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/logger"
	appnats "github.com/nikitalobanov12/WriteShare/internal/adapters/nats"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

func BenchmarkHubDispatch(b *testing.B) {
	for _, listeners := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("Listeners_%d", listeners), func(b *testing.B) {
			hub := appnats.NewHub(logger.NewNop())
			var delivered atomic.Int64
			for i := 0; i < listeners; i++ {
				hub.Register("7", func(domain.ChangeEvent) { delivered.Add(1) })
			}
			hub.Register("8", func(domain.ChangeEvent) {})
			event := domain.ChangeEvent{Type: domain.EventPageUpdated, WorkspaceID: "7", PageID: "p1"}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				hub.Dispatch(event)
			}
			b.StopTimer()
			if got := delivered.Load(); got != int64(b.N*listeners) {
				b.Fatalf("delivered %d events, want %d", got, b.N*listeners)
			}
		})
	}
}
