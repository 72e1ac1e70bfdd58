// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent_tool

import (
	"context"
	"fmt"

	internal_commerce "github.com/cartlineai/api/assistant-api/internal/commerce"
	internal_nlu "github.com/cartlineai/api/assistant-api/internal/nlu"
	"github.com/cartlineai/pkg/commons"
)

// defaultCancelReason is recorded against the order when the caller gives no
// reason of their own.
const defaultCancelReason = "Customer requested cancellation"

type cancelOrderTool struct {
	logger   commons.Logger
	commerce internal_commerce.Client
}

// NewCancelOrderTool cancels an order on the caller's behalf. A fulfilled
// order is refused before the cancel request is sent; refusals come back as
// caller-facing content, not errors.
func NewCancelOrderTool(logger commons.Logger, commerce internal_commerce.Client) ToolCaller {
	return &cancelOrderTool{
		logger:   logger,
		commerce: commerce,
	}
}

func (t *cancelOrderTool) Name() string {
	return internal_nlu.IntentCancelOrder
}

func (t *cancelOrderTool) Call(ctx context.Context, call *Call) (*Result, error) {
	var params internal_nlu.CancelOrderParams
	if err := call.Entities.Decode(&params); err != nil {
		t.logger.Warnf("cancel order tool: entity decode failed: %v", err)
	}
	if params.OrderID == "" {
		return &Result{Content: "No order number provided. Please ask the customer for their order number."}, nil
	}

	order := resolveOrder(ctx, t.logger, t.commerce, call.Caller, params.OrderID)
	if order == nil {
		return &Result{Content: fmt.Sprintf("I couldn't find order #%s. Please verify the order number.", params.OrderID)}, nil
	}
	if order.FulfillmentStatus == "fulfilled" {
		return &Result{
			Content: fmt.Sprintf("Order #%s has already been fulfilled and cannot be canceled. Please contact customer support for assistance.", params.OrderID),
		}, nil
	}

	reason := params.Reason
	if reason == "" {
		reason = defaultCancelReason
	}

	if err := t.commerce.CancelOrder(ctx, order.Id, reason); err != nil {
		t.logger.Warnf("cancel order tool: order %d cancel failed: %v", order.Id, err)
		return &Result{
			Content: fmt.Sprintf("Unable to cancel order #%s. The order may already be fulfilled, shipped, or there might be a system error.", params.OrderID),
		}, nil
	}

	return &Result{
		Content: fmt.Sprintf("Successfully canceled order #%s. You'll receive a confirmation email shortly.", params.OrderID),
	}, nil
}
