package canbus

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/cpsmotion/akmotor/motor"
)

func TestValuePacking(t *testing.T) {
	Convey("packing is invertible within quantisation error", t, func() {
		for _, x := range []float64{-12.5, -3.7, 0, 1.57, 12.5} {
			u := floatToUint(x, -12.5, 12.5, 16)
			back := uintToFloat(u, -12.5, 12.5, 16)
			So(mgl64.FloatEqualThreshold(back, x, 25.0/65535+1e-9), ShouldBeTrue)
		}
	})

	Convey("out of range values saturate instead of wrapping", t, func() {
		So(floatToUint(100, -12.5, 12.5, 16), ShouldEqual, uint32(65535))
		So(floatToUint(-100, -12.5, 12.5, 16), ShouldEqual, uint32(0))
	})
}

func TestEncodeCommand(t *testing.T) {
	params, err := LookupModel("AK80-6")

	Convey("a zero command encodes to mid-scale position", t, func() {
		So(err, ShouldBeNil)

		data := encodeCommand(motor.DriveCommand{}, params)
		So(len(data), ShouldEqual, 8)
		So(data[0], ShouldEqual, byte(0x7F))
		So(data[1], ShouldEqual, byte(0xFF))

		Convey("gains occupy the middle bytes", func() {
			data := encodeCommand(motor.DriveCommand{Kp: 500, Kd: 5}, params)
			// kp and kd saturated to full scale
			So(data[3]&0x0F, ShouldEqual, byte(0x0F))
			So(data[4], ShouldEqual, byte(0xFF))
			So(data[5], ShouldEqual, byte(0xFF))
			So(data[6]&0xF0, ShouldEqual, byte(0xF0))
		})
	})
}

func TestDecodeFeedback(t *testing.T) {
	params, _ := LookupModel("AK80-6")

	Convey("a mid-scale frame decodes to approximately rest", t, func() {
		data := []byte{0x01, 0x7F, 0xFF, 0x7F, 0xF7, 0xFF, 30, 0}
		fb, err := decodeFeedback(data, params)

		So(err, ShouldBeNil)
		So(mgl64.FloatEqualThreshold(fb.Position, 0, 1e-3), ShouldBeTrue)
		So(mgl64.FloatEqualThreshold(fb.Velocity, 0, 0.02), ShouldBeTrue)
		So(mgl64.FloatEqualThreshold(fb.Torque, 0, 0.05), ShouldBeTrue)
		So(fb.Temperature, ShouldEqual, 30.0)
	})

	Convey("short frames are rejected", t, func() {
		_, err := decodeFeedback([]byte{0x01, 0x02}, params)
		So(err, ShouldEqual, ERR_SHORT_FRAME)
	})
}

func TestModeFrames(t *testing.T) {
	Convey("mode frames are seven FF bytes plus the mode", t, func() {
		for _, mode := range []byte{modeEnter, modeExit, modeZero} {
			data := modeFrame(mode)
			So(len(data), ShouldEqual, 8)
			for i := 0; i < 7; i++ {
				So(data[i], ShouldEqual, byte(0xFF))
			}
			So(data[7], ShouldEqual, mode)
		}
	})
}

func TestLookupModel(t *testing.T) {
	Convey("known models resolve, unknown models error", t, func() {
		p, err := LookupModel("AK80-64")
		So(err, ShouldBeNil)
		So(p.TMax, ShouldEqual, 144.0)

		_, err = LookupModel("AK99-1")
		So(err, ShouldNotBeNil)
	})
}
