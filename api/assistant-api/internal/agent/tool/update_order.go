// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent_tool

import (
	"context"
	"fmt"
	"strings"

	internal_commerce "github.com/cartlineai/api/assistant-api/internal/commerce"
	internal_nlu "github.com/cartlineai/api/assistant-api/internal/nlu"
	"github.com/cartlineai/pkg/commons"
)

type updateOrderTool struct {
	logger   commons.Logger
	commerce internal_commerce.Client
}

// NewUpdateOrderTool patches contact and shipping fields on an order. The
// commerce client refuses the patch once an order is fulfilled or cancelled;
// that refusal comes back as caller-facing content, not an error.
func NewUpdateOrderTool(logger commons.Logger, commerce internal_commerce.Client) ToolCaller {
	return &updateOrderTool{
		logger:   logger,
		commerce: commerce,
	}
}

func (t *updateOrderTool) Name() string {
	return internal_nlu.IntentUpdateOrder
}

func (t *updateOrderTool) Call(ctx context.Context, call *Call) (*Result, error) {
	orderID := call.Entities.String("order_id")
	if orderID == "" {
		return &Result{Content: "No order number provided. Please ask the customer for their order number."}, nil
	}

	order := resolveOrder(ctx, t.logger, t.commerce, call.Caller, orderID)
	if order == nil {
		return &Result{Content: fmt.Sprintf("I couldn't find order #%s. Please verify the order number.", orderID)}, nil
	}

	var patch internal_commerce.OrderPatch
	if err := call.Entities.Decode(&patch); err != nil {
		t.logger.Warnf("update order tool: entity decode failed: %v", err)
	}

	// Read back what is changing in the caller's words, not field names.
	var updatedFields []string
	if patch.Email != "" {
		updatedFields = append(updatedFields, "email")
	}
	if patch.Phone != "" {
		updatedFields = append(updatedFields, "phone number")
	}
	if patch.Address1 != "" || patch.Address2 != "" || patch.City != "" || patch.LastName != "" ||
		patch.ProvinceCode != "" || patch.Country != "" || patch.Zip != "" {
		updatedFields = append(updatedFields, "shipping address")
	}
	if len(updatedFields) == 0 {
		return &Result{Content: "No update information provided. Please specify what you'd like to update."}, nil
	}

	if _, err := t.commerce.UpdateOrder(ctx, order.Id, patch); err != nil {
		t.logger.Warnf("update order tool: order %d update failed: %v", order.Id, err)
		return &Result{
			Content: fmt.Sprintf("Unable to update order #%s. The order may be fulfilled, canceled, or there might be a system error.", orderID),
		}, nil
	}

	return &Result{
		Content: fmt.Sprintf("Successfully updated %s for order #%s.", strings.Join(updatedFields, ", "), orderID),
	}, nil
}
