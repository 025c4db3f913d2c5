// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package bolt

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

type options struct {
	withBucket   string
	withTimeout  time.Duration
	withDebounce time.Duration
	withLogger   hclog.Logger
}

func optionDefaults() options {
	return options{
		withBucket:   defaultBucket,
		withTimeout:  defaultTimeout,
		withDebounce: defaultDebounce,
		withLogger:   hclog.NewNullLogger(),
	}
}

func getOpts(opt ...Option) options {
	opts := optionDefaults()
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// WithBucket names the bucket values are kept in.
func WithBucket(name string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && name != "" {
			v.withBucket = name
		}
	}
}

// WithTimeout bounds how long an operation waits for the file lock held
// by another process.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withTimeout = d
		}
	}
}

// WithDebounce sets how long Watch waits for file changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && d > 0 {
			v.withDebounce = d
		}
	}
}

// WithLogger provides an optional logger for watcher errors.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && l != nil {
			v.withLogger = l
		}
	}
}
