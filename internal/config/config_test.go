package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/verdict/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.StoreTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with several problems", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = ""
		cfg.LogLevel = "verbose"
		cfg.StoreDriver = "sqlite"
		cfg.WorkerCount = 0

		err := cfg.Validate()

		convey.Convey("Then every problem is reported as an invalid config", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(err.Error(), convey.ShouldContainSubstring, "log_level")
			convey.So(err.Error(), convey.ShouldContainSubstring, "store_dsn is required for sqlite")
			convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
		})
	})

	convey.Convey("Given a redis config without an address", t, func() {
		cfg := config.New(context.Background())
		cfg.StoreDriver = "redis"

		convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
