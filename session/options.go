// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

type options struct {
	withLogger hclog.Logger
	withNow    func() time.Time
}

func optionDefaults() options {
	return options{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getOpts(opt ...Option) options {
	opts := optionDefaults()
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithNow provides an optional func for determining what the current time it
// is.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && now != nil {
			v.withNow = now
		}
	}
}
