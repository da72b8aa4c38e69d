// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrMappingDBPathRequired indicates the mapping database path is unset.
	ErrMappingDBPathRequired = errors.New("mapping database path is required")
	// ErrInvalidMTBAddress indicates the MTB address is unset or malformed.
	ErrInvalidMTBAddress = errors.New("invalid MTB address provided")
	// ErrInvalidBuilderTimeout indicates a non-positive event-builder timeout.
	ErrInvalidBuilderTimeout = errors.New("event builder timeout must be positive")
	// ErrInvalidSinkRotateCount indicates a non-positive file rotation count.
	ErrInvalidSinkRotateCount = errors.New("sink rotate count must be positive")
)

// Validate checks the configuration for the minimum set of fields required
// to start the core; only these failures abort the process.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}
	if c.MappingDBPath == "" {
		return ErrMappingDBPathRequired
	}
	if c.MTB.Address == "" {
		return ErrInvalidMTBAddress
	}
	if c.Builder.TimeoutSec <= 0 {
		return ErrInvalidBuilderTimeout
	}
	if c.Sink.RotateCount <= 0 {
		return ErrInvalidSinkRotateCount
	}
	return nil
}
