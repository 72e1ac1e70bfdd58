// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package configs

type OpenSearchConfig struct {
	Address  string `mapstructure:"address" validate:"required"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// InsecureSkipVerify is for self-signed local clusters only.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}
