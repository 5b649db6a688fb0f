package position

import "context"

// FakeProvider returns a scripted fix for tests.
type FakeProvider struct {
	Fix    Fix
	Err    error
	Calls  int
	Closed bool
}

// Current returns the scripted fix or error.
func (f *FakeProvider) Current(ctx context.Context) (Fix, error) {
	f.Calls++
	if f.Err != nil {
		return Fix{}, f.Err
	}
	return f.Fix, nil
}

// Close marks the provider as closed.
func (f *FakeProvider) Close() error {
	f.Closed = true
	return nil
}
