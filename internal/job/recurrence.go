package job

import (
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shop24h/shop24h/internal/errorutil"
	"github.com/shop24h/shop24h/internal/timeutil"
)

// RepeatInterval is the recurrence specification of a recurring job. It is
// either a standard five-field cron expression or a relative duration with
// at least one positive component.
type RepeatInterval struct {
	Cron    string `json:"cron,omitempty"`
	Days    int    `json:"days,omitempty"`
	Hours   int    `json:"hours,omitempty"`
	Minutes int    `json:"minutes,omitempty"`
}

// UnmarshalJSON accepts both shapes callers send: a bare JSON string holding
// a cron expression, or an object with duration components.
func (ri *RepeatInterval) UnmarshalJSON(data []byte) error {
	var expr string
	if err := json.Unmarshal(data, &expr); err == nil {
		*ri = RepeatInterval{Cron: expr}
		return nil
	}

	type alias RepeatInterval
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*ri = RepeatInterval(a)
	return nil
}

func (ri *RepeatInterval) duration() time.Duration {
	return time.Duration(ri.Days)*24*time.Hour +
		time.Duration(ri.Hours)*time.Hour +
		time.Duration(ri.Minutes)*time.Minute
}

// NextFireTime computes the next execution instant strictly after ref.
// It is pure: the same spec and reference instant always produce the same
// result, which keeps scheduling reproducible in tests.
func NextFireTime(interval *RepeatInterval, ref timeutil.DateTime) (timeutil.DateTime, error) {
	if interval == nil {
		return timeutil.DateTime{}, errorutil.Format("%w: no repeat interval given", ErrInvalidRecurrence)
	}

	if interval.Cron != "" {
		schedule, err := cron.ParseStandard(interval.Cron)
		if err != nil {
			return timeutil.DateTime{}, errorutil.Format("%w: %v", ErrInvalidRecurrence, err)
		}
		return timeutil.NewDateTime(schedule.Next(ref.Time)), nil
	}

	if interval.Days < 0 || interval.Hours < 0 || interval.Minutes < 0 {
		return timeutil.DateTime{}, errorutil.Format("%w: duration components must not be negative", ErrInvalidRecurrence)
	}

	d := interval.duration()
	if d <= 0 {
		return timeutil.DateTime{}, errorutil.Format("%w: duration must be positive", ErrInvalidRecurrence)
	}

	return ref.Add(d), nil
}
