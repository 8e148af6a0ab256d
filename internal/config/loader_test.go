package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/levelrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.CommandQueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.AuditCapacity, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LEVELRANK_ADDR", ":8080")
			_ = os.Setenv("LEVELRANK_STORE_DRIVER", "sqlite")
			_ = os.Setenv("LEVELRANK_STORE_PATH", "/tmp/levelrank.db")
			_ = os.Setenv("LEVELRANK_AUDIT_CAPACITY", "50")
			_ = os.Setenv("LEVELRANK_ID_FORMAT", "nanoid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreDriverSQLite)
				convey.So(cfg.StorePath, convey.ShouldEqual, "/tmp/levelrank.db")
				convey.So(cfg.AuditCapacity, convey.ShouldEqual, 50)
				convey.So(cfg.IDFormat, convey.ShouldEqual, config.IDFormatNanoID)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
command_queue_size: 64
points_base: 201
points_max: 200
`)
			_ = os.Setenv("LEVELRANK_CONFIG", tmpFile)
			_ = os.Setenv("LEVELRANK_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CommandQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.PointsBase, convey.ShouldEqual, 201)
				convey.So(cfg.PointsMax, convey.ShouldEqual, 200)
				convey.So(cfg.PointsMin, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("LEVELRANK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("LEVELRANK_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("LEVELRANK_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("LEVELRANK_COMMAND_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "levelrank.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"LEVELRANK_CONFIG",
		"LEVELRANK_ADDR",
		"LEVELRANK_STORE_DRIVER",
		"LEVELRANK_STORE_PATH",
		"LEVELRANK_AUDIT_CAPACITY",
		"LEVELRANK_ID_FORMAT",
		"LEVELRANK_COMMAND_QUEUE_SIZE",
	} {
		_ = os.Unsetenv(key)
	}
}
