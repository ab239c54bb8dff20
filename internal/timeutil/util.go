// Package timeutil keeps every timestamp in the system in UTC with a
// single wire format.
package timeutil

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const dateTimeFormat = "2006-01-02T15:04:05Z"

type DateTime struct {
	time.Time
}

func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.UTC()}
}

func DateTimeNow() DateTime {
	return NewDateTime(Now())
}

func (d DateTime) Add(dur time.Duration) DateTime {
	return NewDateTime(d.Time.Add(dur))
}

func (d DateTime) String() string {
	return d.Time.Format(dateTimeFormat)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	var dateStr string
	if err := json.Unmarshal(data, &dateStr); err != nil {
		return err
	}

	parsed, err := time.Parse(dateTimeFormat, dateStr)
	if err != nil {
		return err
	}

	d.Time = parsed.UTC()
	return nil
}

func (d DateTime) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *DateTime) Scan(value any) error {
	switch v := value.(type) {
	case time.Time:
		d.Time = v.UTC()
		return nil
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return err
		}
		d.Time = parsed.UTC()
		return nil
	case nil:
		d.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into DateTime", value)
	}
}

func Now() time.Time {
	return time.Now().UTC()
}
