package errors

import "fmt"

type NotPoweredError struct {
	State string
}

func (err NotPoweredError) Error() string {
	if len(err.State) == 0 {
		err.State = "UNKNOWN"
	}

	return fmt.Sprintf("motor is not powered on; current state %s", err.State)
}

type ConnectionRequiredError struct {
	Op string
}

func (err ConnectionRequiredError) Error() string {
	if len(err.Op) == 0 {
		err.Op = "UNKNOWN"
	}

	return fmt.Sprintf("no transport connection; unable to perform %s", err.Op)
}

type InvalidGainError struct {
	Name  string
	Value float64
}

func (err InvalidGainError) Error() string {
	return fmt.Sprintf("invalid gain %s = %g; gains must be non-negative", err.Name, err.Value)
}

type TransportError struct {
	Op  string
	Err error
}

func (err TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", err.Op, err.Err)
}

func (err TransportError) Unwrap() error {
	return err.Err
}
