// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

// Package migrations embeds the SQL schema for the relational store so the
// binary can migrate itself without shipping loose files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
