package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

type timezoneInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA time zone such as Europe/Berlin. Defaults to UTC"`
}

type weekdayInput struct {
	Date string `json:"date" jsonschema:"description=Date in YYYY-MM-DD format"`
}

type durationInput struct {
	From string `json:"from" jsonschema:"description=Start date in YYYY-MM-DD format"`
	To   string `json:"to" jsonschema:"description=End date in YYYY-MM-DD format"`
}

// newTimePlugin returns the "time" plugin. now is the clock, time.Now
// outside of tests.
func newTimePlugin(now func() time.Time) (*kernel.Plugin, error) {
	location := func(name string) (*time.Location, error) {
		if name == "" {
			return time.UTC, nil
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown time zone %q", kernel.ErrInvalidArguments, name)
		}
		return loc, nil
	}
	parseDate := func(s string) (time.Time, error) {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", kernel.ErrInvalidArguments, s)
		}
		return t, nil
	}

	nowFn, err := kernel.NewFunction("now", "Returns the current date and time in RFC 3339 format",
		func(ctx context.Context, in timezoneInput) (string, error) {
			loc, err := location(in.Timezone)
			if err != nil {
				return "", err
			}
			return now().In(loc).Format(time.RFC3339), nil
		})
	if err != nil {
		return nil, err
	}
	todayFn, err := kernel.NewFunction("today", "Returns the current date in YYYY-MM-DD format",
		func(ctx context.Context, in timezoneInput) (string, error) {
			loc, err := location(in.Timezone)
			if err != nil {
				return "", err
			}
			return now().In(loc).Format(time.DateOnly), nil
		})
	if err != nil {
		return nil, err
	}
	weekdayFn, err := kernel.NewFunction("weekday", "Returns the day of the week of a date",
		func(ctx context.Context, in weekdayInput) (string, error) {
			d, err := parseDate(in.Date)
			if err != nil {
				return "", err
			}
			return d.Weekday().String(), nil
		})
	if err != nil {
		return nil, err
	}
	daysFn, err := kernel.NewFunction("days_between", "Returns the number of days from one date to another, negative when to is before from",
		func(ctx context.Context, in durationInput) (int, error) {
			from, err := parseDate(in.From)
			if err != nil {
				return 0, err
			}
			to, err := parseDate(in.To)
			if err != nil {
				return 0, err
			}
			return int(to.Sub(from).Hours() / 24), nil
		})
	if err != nil {
		return nil, err
	}

	return kernel.NewPlugin("time", "Current time and calendar arithmetic", nowFn, todayFn, weekdayFn, daysFn)
}

type operands struct {
	A float64 `json:"a" jsonschema:"description=First operand"`
	B float64 `json:"b" jsonschema:"description=Second operand"`
}

type operand struct {
	X float64 `json:"x" jsonschema:"description=Operand"`
}

// newMathPlugin returns the "math" plugin. Results that are not finite are
// reported as invalid arguments so the model can correct its call.
func newMathPlugin() (*kernel.Plugin, error) {
	finite := func(v float64) (float64, error) {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%w: result is not a finite number", kernel.ErrInvalidArguments)
		}
		return v, nil
	}
	binary := func(name, description string, op func(a, b float64) (float64, error)) (*kernel.NativeFunction, error) {
		return kernel.NewFunction(name, description, func(ctx context.Context, in operands) (float64, error) {
			v, err := op(in.A, in.B)
			if err != nil {
				return 0, err
			}
			return finite(v)
		})
	}

	add, err := binary("add", "Adds b to a", func(a, b float64) (float64, error) { return a + b, nil })
	if err != nil {
		return nil, err
	}
	subtract, err := binary("subtract", "Subtracts b from a", func(a, b float64) (float64, error) { return a - b, nil })
	if err != nil {
		return nil, err
	}
	multiply, err := binary("multiply", "Multiplies a by b", func(a, b float64) (float64, error) { return a * b, nil })
	if err != nil {
		return nil, err
	}
	divide, err := binary("divide", "Divides a by b", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: division by zero", kernel.ErrInvalidArguments)
		}
		return a / b, nil
	})
	if err != nil {
		return nil, err
	}
	power, err := binary("power", "Raises a to the power of b", func(a, b float64) (float64, error) { return math.Pow(a, b), nil })
	if err != nil {
		return nil, err
	}
	sqrt, err := kernel.NewFunction("sqrt", "Returns the square root of x",
		func(ctx context.Context, in operand) (float64, error) {
			if in.X < 0 {
				return 0, fmt.Errorf("%w: square root of a negative number", kernel.ErrInvalidArguments)
			}
			return math.Sqrt(in.X), nil
		})
	if err != nil {
		return nil, err
	}

	return kernel.NewPlugin("math", "Basic arithmetic", add, subtract, multiply, divide, power, sqrt)
}
