// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent_tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	internal_commerce "github.com/cartlineai/api/assistant-api/internal/commerce"
	internal_nlu "github.com/cartlineai/api/assistant-api/internal/nlu"
	"github.com/cartlineai/pkg/commons"
)

// maxReadBackOrders caps how many orders a status reply describes. Anything
// longer is unusable over the phone.
const maxReadBackOrders = 3

type orderTool struct {
	logger   commons.Logger
	commerce internal_commerce.Client
}

// NewOrderTool answers order status questions. With an extracted order number
// it looks the order up directly; without one it falls back to the caller's
// own order history, resolved through the phone number the call arrived from.
func NewOrderTool(logger commons.Logger, commerce internal_commerce.Client) ToolCaller {
	return &orderTool{
		logger:   logger,
		commerce: commerce,
	}
}

func (t *orderTool) Name() string {
	return internal_nlu.IntentOrder
}

func (t *orderTool) Call(ctx context.Context, call *Call) (*Result, error) {
	var params internal_nlu.OrderParams
	if err := call.Entities.Decode(&params); err != nil {
		t.logger.Warnf("order tool: entity decode failed: %v", err)
	}

	var orders []internal_commerce.Order
	if params.OrderID != "" {
		if order := resolveOrder(ctx, t.logger, t.commerce, call.Caller, params.OrderID); order != nil {
			orders = []internal_commerce.Order{*order}
		}
	}

	customerFound := false
	if len(orders) == 0 && call.Caller != "" {
		customer, err := t.commerce.FindCustomerByPhone(ctx, call.Caller)
		switch {
		case err == nil:
			customerFound = true
			orders, err = t.commerce.OrdersByCustomer(ctx, customer.Id)
			if err != nil {
				return nil, fmt.Errorf("order tool: %w", err)
			}
		case errors.Is(err, internal_commerce.ErrCustomerNotFound):
			// Caller has never ordered here, fall through to the not-found reply.
		default:
			return nil, fmt.Errorf("order tool: %w", err)
		}
	}

	if len(orders) == 0 {
		message := "I couldn't find any orders"
		if params.OrderID != "" {
			message += " matching #" + params.OrderID
		}
		if customerFound {
			message += " associated with your account"
		}
		return &Result{Content: message + "."}, nil
	}

	// Most recent first. CreatedAt is RFC 3339, so the string order is the
	// time order.
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
	if len(orders) > maxReadBackOrders {
		orders = orders[:maxReadBackOrders]
	}

	var b strings.Builder
	b.WriteString("Order information:\n")
	for i := range orders {
		b.WriteString("\n")
		b.WriteString(formatOrder(&orders[i]))
	}
	return &Result{Content: b.String()}, nil
}

// resolveOrder finds the order behind an identifier the caller read out.
// Callers quote the short order number as often as the internal id, so a
// failed id lookup falls back to scanning the caller's own orders for a
// number match. Returns nil when nothing matches; lookup failures are logged
// and treated as not found.
func resolveOrder(ctx context.Context, logger commons.Logger, commerce internal_commerce.Client, caller, orderID string) *internal_commerce.Order {
	id, err := strconv.ParseInt(strings.TrimPrefix(orderID, "#"), 10, 64)
	if err != nil {
		logger.Warnf("unusable order identifier %q: %v", orderID, err)
		return nil
	}

	if order, err := commerce.Order(ctx, id); err == nil {
		return order
	}

	if caller == "" {
		return nil
	}
	customer, err := commerce.FindCustomerByPhone(ctx, caller)
	if err != nil {
		if !errors.Is(err, internal_commerce.ErrCustomerNotFound) {
			logger.Warnf("customer lookup for order %s failed: %v", orderID, err)
		}
		return nil
	}
	orders, err := commerce.OrdersByCustomer(ctx, customer.Id)
	if err != nil {
		logger.Warnf("order listing for order %s failed: %v", orderID, err)
		return nil
	}
	for i := range orders {
		if orders[i].Id == id || orders[i].OrderNumber == id {
			return &orders[i]
		}
	}
	return nil
}

func formatOrder(order *internal_commerce.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d\n", order.OrderNumber)
	fmt.Fprintf(&b, "Date: %s\n", orderDate(order.CreatedAt))
	total := valueOr(order.TotalPrice, "N/A")
	if order.Currency != "" {
		fmt.Fprintf(&b, "Total: %s %s\n", total, order.Currency)
	} else {
		fmt.Fprintf(&b, "Total: %s\n", total)
	}
	fmt.Fprintf(&b, "Payment status: %s\n", valueOr(order.FinancialStatus, "N/A"))
	// An order without fulfillments reports an empty status, which to a
	// caller means it is still being processed.
	fmt.Fprintf(&b, "Fulfillment status: %s\n", valueOr(order.FulfillmentStatus, "processing"))
	fmt.Fprintf(&b, "Shipping address: %s\n", formatAddress(order.ShippingAddress))
	if len(order.LineItems) > 0 {
		b.WriteString("Items:\n")
		for _, item := range order.LineItems {
			fmt.Fprintf(&b, "- %s x%d at %s\n", item.Title, item.Quantity, valueOr(item.Price, "N/A"))
		}
	}
	return b.String()
}

// orderDate trims an RFC 3339 timestamp down to its date part.
func orderDate(createdAt string) string {
	if createdAt == "" {
		return "N/A"
	}
	if i := strings.Index(createdAt, "T"); i > 0 {
		return createdAt[:i]
	}
	return createdAt
}

func formatAddress(address *internal_commerce.ShippingAddress) string {
	if address == nil {
		return "No address information available"
	}
	var parts []string
	if name := strings.TrimSpace(address.FirstName + " " + address.LastName); name != "" {
		parts = append(parts, name)
	}
	if address.Address1 != "" {
		parts = append(parts, address.Address1)
	}
	if address.Address2 != "" {
		parts = append(parts, address.Address2)
	}
	var locality []string
	if address.City != "" {
		locality = append(locality, address.City)
	}
	if address.ProvinceCode != "" {
		locality = append(locality, address.ProvinceCode)
	}
	if address.Zip != "" {
		locality = append(locality, address.Zip)
	}
	if len(locality) > 0 {
		parts = append(parts, strings.Join(locality, ", "))
	}
	if address.Country != "" {
		parts = append(parts, address.Country)
	}
	if len(parts) == 0 {
		return "No address information available"
	}
	return strings.Join(parts, ", ")
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
