// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Hearth components.
//
// Configuration is loaded from a single YAML file specified by:
//   - HEARTH_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The config file may
// contain environment-specific sections (development, staging,
// production) that override base values when the environment matches.
// Environment variables never override file values; the only
// expansion performed is ${HOME} and similar path variables.
package config
