// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_nlu

import (
	"github.com/mitchellh/mapstructure"
)

// OrderParams is the typed view of an order status extraction.
type OrderParams struct {
	OrderID   string `mapstructure:"order_id"`
	Timeframe string `mapstructure:"timeframe"`
	Product   string `mapstructure:"product"`
	Email     string `mapstructure:"email"`
	Phone     string `mapstructure:"phone"`
}

// CancelOrderParams is the typed view of a cancellation extraction.
type CancelOrderParams struct {
	OrderID string `mapstructure:"order_id"`
	Reason  string `mapstructure:"reason"`
}

// ProductParams is the typed view of a product query extraction.
type ProductParams struct {
	ProductType string `mapstructure:"product_type"`
	ProductName string `mapstructure:"product_name"`
	PriceInfo   string `mapstructure:"price_info"`
}

// Decode projects the entity map onto a typed struct. Weak typing is on
// because the model regularly returns order ids as JSON numbers.
func (e Entities) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(e))
}
