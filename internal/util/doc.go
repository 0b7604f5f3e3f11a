// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for foliogate.
//
// String helpers are display-width aware (CJK and other double-width
// characters count as two columns) and never split multi-byte UTF-8
// sequences. AtomicWriteFile is the crash-safe write used for config
// and other state files.
package util
