package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/Dakheel-code/arena-run-sub001/internal/geo"
	"github.com/Dakheel-code/arena-run-sub001/internal/notify"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type staticResolver struct {
	byIP map[string]geo.Location
}

func (r staticResolver) Resolve(_ context.Context, ip string) geo.Location {
	if loc, ok := r.byIP[ip]; ok {
		return loc
	}
	return geo.Unknown()
}

type recordingDeliverer struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
	block    chan struct{}
}

func (d *recordingDeliverer) Deliver(ctx context.Context, _ notify.Destination, m notify.Message) error {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, m)
	return d.err
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}
