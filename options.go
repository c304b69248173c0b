package extraq

import "time"

type Options struct {
	Addr        string
	StatePath   string
	RecordsPath string

	RequestsPerSecond int
	Concurrency       int
	MaxRetries        int
	RetryDelay        time.Duration
	MaxPending        int
}

func DefaultOptions(opts *Options) *Options {
	o := &Options{
		Addr:              ":8080",
		StatePath:         "extraq/runs.db",
		RecordsPath:       "extraq/records.db",
		RequestsPerSecond: 10,
		Concurrency:       4,
		MaxRetries:        3,
		RetryDelay:        500 * time.Millisecond,
	}

	if opts == nil {
		return o
	}

	if len(opts.Addr) > 0 {
		o.Addr = opts.Addr
	}

	if len(opts.StatePath) > 0 {
		o.StatePath = opts.StatePath
	}

	if len(opts.RecordsPath) > 0 {
		o.RecordsPath = opts.RecordsPath
	}

	if opts.RequestsPerSecond > 0 {
		o.RequestsPerSecond = opts.RequestsPerSecond
	}

	if opts.Concurrency > 0 {
		o.Concurrency = opts.Concurrency
	}

	if opts.MaxRetries > 0 {
		o.MaxRetries = opts.MaxRetries
	}

	if opts.RetryDelay > 0 {
		o.RetryDelay = opts.RetryDelay
	}

	if opts.MaxPending != 0 {
		o.MaxPending = opts.MaxPending
	}

	return o
}
