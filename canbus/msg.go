package canbus

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cpsmotion/akmotor/motor"
)

// MIT mode special frames: seven 0xFF bytes plus a trailing mode byte.
const (
	modeEnter = 0xFC
	modeExit  = 0xFD
	modeZero  = 0xFE
)

var ERR_SHORT_FRAME = errors.New("feedback frame shorter than 6 bytes")

// floatToUint packs x into an unsigned integer of the given bit width,
// saturating at the range edges. Mirrors the firmware's unpacking exactly.
func floatToUint(x, min, max float64, bits uint) uint32 {
	x = mgl64.Clamp(x, min, max)
	span := max - min
	return uint32((x - min) * float64(int64(1)<<bits-1) / span)
}

// uintToFloat is the inverse of floatToUint.
func uintToFloat(u uint32, min, max float64, bits uint) float64 {
	span := max - min
	return float64(u)*span/float64(int64(1)<<bits-1) + min
}

// encodeCommand packs a drive command into the 8-byte MIT command frame:
// position 16 bits, then velocity, kp, kd and feedforward torque at 12 bits
// each, big-endian bit order.
func encodeCommand(cmd motor.DriveCommand, p ModelParams) []byte {
	pu := floatToUint(cmd.PositionTarget, p.PMin, p.PMax, 16)
	vu := floatToUint(cmd.VelocityTarget, p.VMin, p.VMax, 12)
	kpu := floatToUint(cmd.Kp, 0, p.KpMax, 12)
	kdu := floatToUint(cmd.Kd, 0, p.KdMax, 12)
	tu := floatToUint(cmd.Feedforward, p.TMin, p.TMax, 12)

	data := make([]byte, 8)
	data[0] = byte(pu >> 8)
	data[1] = byte(pu)
	data[2] = byte(vu >> 4)
	data[3] = byte(vu<<4) | byte(kpu>>8)
	data[4] = byte(kpu)
	data[5] = byte(kdu >> 4)
	data[6] = byte(kdu<<4) | byte(tu>>8)
	data[7] = byte(tu)

	return data
}

// decodeFeedback unpacks a feedback frame: motor id, position 16 bits,
// velocity 12 bits, torque 12 bits, then a raw temperature byte.
func decodeFeedback(data []byte, p ModelParams) (fb motor.Feedback, err error) {
	if len(data) < 6 {
		return fb, ERR_SHORT_FRAME
	}

	pu := uint32(data[1])<<8 | uint32(data[2])
	vu := uint32(data[3])<<4 | uint32(data[4])>>4
	tu := uint32(data[4]&0xF)<<8 | uint32(data[5])

	fb.Position = uintToFloat(pu, p.PMin, p.PMax, 16)
	fb.Velocity = uintToFloat(vu, p.VMin, p.VMax, 12)
	fb.Torque = uintToFloat(tu, p.TMin, p.TMax, 12)
	if len(data) > 6 {
		fb.Temperature = float64(data[6])
	}

	return fb, nil
}

func modeFrame(mode byte) []byte {
	return []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, mode}
}
