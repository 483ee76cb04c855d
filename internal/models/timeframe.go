package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeFrame is the dashboard display window selected by the user
type TimeFrame string

const (
	TimeFrame1H  TimeFrame = "1H"
	TimeFrame24H TimeFrame = "24H"
	TimeFrame1W  TimeFrame = "1W"
	TimeFrame1M  TimeFrame = "1M"
	TimeFrame1Y  TimeFrame = "1Y"
)

// DefaultTimeFrame is active when the process starts
const DefaultTimeFrame = TimeFrame24H

// ErrInvalidFrame is returned for any label outside the five supported frames
var ErrInvalidFrame = errors.New("invalid time frame")

// frameSpec holds the simulation cadence and chart depth of a frame.
// Intervals are presentation cadences, not real time-scale ticks.
type frameSpec struct {
	interval  time.Duration
	retention int
}

var frameSpecs = map[TimeFrame]frameSpec{
	TimeFrame1H:  {interval: 2 * time.Second, retention: 60},
	TimeFrame24H: {interval: 7 * time.Second, retention: 24},
	TimeFrame1W:  {interval: 15 * time.Second, retention: 7},
	TimeFrame1M:  {interval: 30 * time.Second, retention: 30},
	TimeFrame1Y:  {interval: 60 * time.Second, retention: 12},
}

// AllTimeFrames returns the supported frames in display order
func AllTimeFrames() []TimeFrame {
	return []TimeFrame{TimeFrame1H, TimeFrame24H, TimeFrame1W, TimeFrame1M, TimeFrame1Y}
}

// ParseTimeFrame converts a user supplied label ("1h", " 24H ") into a TimeFrame
func ParseTimeFrame(label string) (TimeFrame, error) {
	tf := TimeFrame(strings.ToUpper(strings.TrimSpace(label)))
	if _, ok := frameSpecs[tf]; !ok {
		return "", fmt.Errorf("%w: %q (must be one of 1H, 24H, 1W, 1M, 1Y)", ErrInvalidFrame, label)
	}
	return tf, nil
}

// Valid reports whether tf is one of the supported frames
func (tf TimeFrame) Valid() bool {
	_, ok := frameSpecs[tf]
	return ok
}

// Interval returns the tick period of the frame, zero for an invalid frame
func (tf TimeFrame) Interval() time.Duration {
	return frameSpecs[tf].interval
}

// Retention returns how many balance points the frame keeps, zero for an invalid frame
func (tf TimeFrame) Retention() int {
	return frameSpecs[tf].retention
}

// TimeFrameInfo describes a frame for API consumers
type TimeFrameInfo struct {
	Label      string `json:"label"`
	IntervalMs int64  `json:"intervalMs"`
	Retention  int    `json:"retention"`
}

// Info returns the API description of the frame
func (tf TimeFrame) Info() TimeFrameInfo {
	return TimeFrameInfo{
		Label:      string(tf),
		IntervalMs: tf.Interval().Milliseconds(),
		Retention:  tf.Retention(),
	}
}
