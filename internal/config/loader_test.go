package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ndh707/sart/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"SART_CONFIG",
	"SART_LOG_LEVEL",
	"SART_QUEUE_SIZE",
	"SART_SEED",
	"SART_STIMULUS_DIGITS",
	"SART_TARGET_DIGIT",
	"SART_N_TRIALS",
	"SART_TARGET_PROBABILITY",
	"SART_ISI_MS",
	"SART_SIM_OMISSION_RATE",
}

func clearConfigEnvVars() {
	for _, name := range configEnvVars {
		_ = os.Unsetenv(name)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "sart-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New(ctx))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SART_N_TRIALS", "225")
			_ = os.Setenv("SART_TARGET_PROBABILITY", "0.2")
			_ = os.Setenv("SART_STIMULUS_DIGITS", "1,2,3")
			_ = os.Setenv("SART_SEED", "99")
			_ = os.Setenv("SART_ISI_MS", "0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Trials, convey.ShouldEqual, 225)
				convey.So(cfg.TargetProbability, convey.ShouldEqual, 0.2)
				convey.So(cfg.StimulusDigits, convey.ShouldResemble, []string{"1", "2", "3"})
				convey.So(cfg.Seed, convey.ShouldEqual, 99)
				convey.So(cfg.ISIMS, convey.ShouldEqual, 0)
				convey.So(cfg.TargetDigit, convey.ShouldEqual, "3")
			})
		})

		convey.Convey("When the digit list from the environment has spaces after commas", func() {
			_ = os.Setenv("SART_STIMULUS_DIGITS", "1, 2, 3, 4")

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			task, err := cfg.TaskConfig()

			convey.Convey("Then the task configuration should hold bare digits", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(task.StimulusDigits, convey.ShouldResemble, []string{"1", "2", "3", "4"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
log_level: debug
queue_size: 64
stimulus_digits: ["0", "1", "2"]
target_digit: "0"
n_trials: 30
feedback_duration_ms: 500
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SART_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.StimulusDigits, convey.ShouldResemble, []string{"0", "1", "2"})
				convey.So(cfg.TargetDigit, convey.ShouldEqual, "0")
				convey.So(cfg.Trials, convey.ShouldEqual, 30)
				convey.So(cfg.FeedbackDurationMS, convey.ShouldEqual, 500)
				convey.So(cfg.StimulusDurationMS, convey.ShouldEqual, 250)
			})

			convey.Convey("And environment variables should win over the file", func() {
				_ = os.Setenv("SART_N_TRIALS", "12")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Trials, convey.ShouldEqual, 12)
				convey.So(cfg.TargetDigit, convey.ShouldEqual, "0")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("SART_CONFIG", "/nonexistent/sart.yaml")
			_, err := config.Load(ctx)

			convey.Convey("Then it should report a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a process setting is invalid", func() {
			_ = os.Setenv("SART_QUEUE_SIZE", "0")
			_ = os.Setenv("SART_LOG_LEVEL", "loud")
			_, err := config.Load(ctx)

			convey.Convey("Then it should report an invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the simulated omission rate is out of range", func() {
			_ = os.Setenv("SART_SIM_OMISSION_RATE", "1.5")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
