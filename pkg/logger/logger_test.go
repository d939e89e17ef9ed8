package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			err := Init()

			Convey("Then Get returns a logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it reports the format", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "record saved", AssignmentID("a-1"), Float64("total", 58), Error(errors.New("boom")))

			Convey("Then the line carries every field and a source", func() {
				var line map[string]any
				So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
				So(line["msg"], ShouldEqual, "record saved")
				So(line["assignment_id"], ShouldEqual, "a-1")
				So(line["total"], ShouldEqual, 58.0)
				So(line["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then only the warning is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When using Named and With", func() {
			Named("service").With(String("backend", "memory")).Info(ctx, "started")

			Convey("Then the output is grouped", func() {
				So(buf.String(), ShouldContainSubstring, `"service"`)
				So(buf.String(), ShouldContainSubstring, "memory")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		for _, level := range []string{"debug", "info", "", "WARN", "warning", "error"} {
			So(SetLevelString(level), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}
