package telemetry

import (
	"time"

	"github.com/asdine/storm"

	"github.com/cpsmotion/akmotor/motor"
)

// Sample is one recorded state snapshot.
type Sample struct {
	ID          int       `storm:"increment"` // pk
	Motor       string    `storm:"index"`
	At          time.Time `storm:"index"`
	Position    float64
	Velocity    float64
	Torque      float64
	Temperature float64
	OverTemp    bool
}

// Recorder persists motor state snapshots for later inspection. One recorder
// serves all motors in a session; samples are keyed by motor name.
type Recorder struct {
	db *storm.DB
}

func NewRecorder(db *storm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores one snapshot.
func (r *Recorder) Record(name string, state motor.MotorState) error {
	return r.db.Save(&Sample{
		Motor:       name,
		At:          state.UpdatedAt,
		Position:    state.Position,
		Velocity:    state.Velocity,
		Torque:      state.Torque,
		Temperature: state.Temperature,
		OverTemp:    state.OverTemp,
	})
}

// Recent returns up to limit samples for a motor, newest first.
func (r *Recorder) Recent(name string, limit int) (samples []Sample, err error) {
	err = r.db.Find("Motor", name, &samples, storm.Limit(limit), storm.Reverse())
	if err == storm.ErrNotFound {
		return nil, nil
	}
	return samples, err
}

// Count reports how many samples are stored for a motor.
func (r *Recorder) Count(name string) (int, error) {
	var samples []Sample
	err := r.db.Find("Motor", name, &samples)
	if err == storm.ErrNotFound {
		return 0, nil
	}
	return len(samples), err
}
