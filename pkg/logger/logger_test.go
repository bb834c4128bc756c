package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the logger package", t, func() {
		Convey("When initialized with the default options", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		So(SetLevelString("info"), ShouldBeNil)

		Convey("When logging with fields through a named logger", func() {
			Named("registry").Info(context.Background(), "artifacts loaded",
				String("dir", "/tmp/artifacts"),
				Int("width", 61),
				Bool("ready", true),
			)

			Convey("Then the record carries every field plus component and source", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "artifacts loaded")
				So(rec["component"], ShouldEqual, "registry")
				So(rec["dir"], ShouldEqual, "/tmp/artifacts")
				So(rec["width"], ShouldEqual, float64(61))
				So(rec["ready"], ShouldEqual, true)
				So(rec["source"], ShouldContainSubstring, "logger_test.go:")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Warn(context.Background(), "dropped")

			Convey("Then lower levels are suppressed", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Reset(func() { _ = SetLevelString("info") })
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		_ = SetLevelString("info")
	})
}

func TestWithAndNop(t *testing.T) {
	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)

		Get().With(String("request_id", "abc")).Info(context.Background(), "hello")
		So(strings.Contains(buf.String(), "request_id=abc"), ShouldBeTrue)

		Convey("And Nop discards output", func() {
			Nop().Error(context.Background(), "nothing")
			So(Nop(), ShouldNotBeNil)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given a global logger", t, func() {
		var global, local bytes.Buffer
		So(Init(WithWriter(&global)), ShouldBeNil)

		Convey("When a standalone logger is built", func() {
			l, err := New(WithFormat("json"), WithWriter(&local))
			So(err, ShouldBeNil)
			l.Warn(context.Background(), "standalone")

			Convey("Then it writes to its own sink only", func() {
				So(local.String(), ShouldContainSubstring, `"level":"WARN"`)
				So(local.String(), ShouldContainSubstring, `"msg":"standalone"`)
				So(global.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the format is unknown", func() {
			_, err := New(WithFormat("xml"))
			So(err, ShouldNotBeNil)
		})
	})
}
