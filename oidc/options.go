// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// clientOptions is the set of available options for NewClient
type clientOptions struct {
	withLogger hclog.Logger
	withNow    func() time.Time
}

func clientDefaults() clientOptions {
	return clientOptions{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for a Client.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithNow provides an optional func for determining what the current time it
// is.  It is used for the expiry of the session cookie.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *clientOptions:
			if now != nil {
				v.withNow = now
			}
		case *testProviderOptions:
			if now != nil {
				v.withNow = now
			}
		}
	}
}
