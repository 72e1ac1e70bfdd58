// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/utils"
)

var (
	// ErrCustomerNotFound is returned when no customer record matches the
	// caller's phone number exactly.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrOrderFulfilled and ErrOrderCancelled guard updates: a fulfilled or
	// cancelled order is never patched.
	ErrOrderFulfilled = errors.New("order already fulfilled")
	ErrOrderCancelled = errors.New("order already cancelled")
)

// AuthenticationError indicates the store's access token was rejected.
type AuthenticationError struct {
	Message string `json:"message"`
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// ApiError is any other non-success response from the commerce API.
type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *ApiError) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return "undefined commerce error"
	}
	return string(b)
}

// Client is the order-management surface the assistant is allowed to touch.
// It reads and patches orders on behalf of a caller; the commerce platform
// owns the order lifecycle.
type Client interface {
	FindCustomerByPhone(ctx context.Context, phone string) (*Customer, error)
	OrdersByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	Order(ctx context.Context, orderID int64) (*Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string) error
	UpdateOrder(ctx context.Context, orderID int64, patch OrderPatch) (*Order, error)
	Products(ctx context.Context) ([]Product, error)
	Product(ctx context.Context, productID int64) (*Product, error)
	Shop(ctx context.Context) (*Shop, error)
}

// AdminApiVersion pins the admin REST version every store client talks to.
const AdminApiVersion = "2025-01"

// AdminBaseUrl builds the versioned admin API root from a bare store domain
// the way store profiles record it, e.g. my-store.myshopify.com.
func AdminBaseUrl(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if domain == "" {
		return ""
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return fmt.Sprintf("%s/admin/api/%s", domain, AdminApiVersion)
}

type shopifyClient struct {
	logger commons.Logger
	http   *resty.Client
}

// NewShopifyClient creates an admin REST client for a single store. The base
// URL is the versioned admin root, e.g.
// https://my-store.myshopify.com/admin/api/2024-04
func NewShopifyClient(logger commons.Logger, baseUrl, accessToken string) Client {
	if !strings.HasPrefix(baseUrl, "http://") && !strings.HasPrefix(baseUrl, "https://") {
		baseUrl = "https://" + baseUrl
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseUrl, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Access-Token", accessToken).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &shopifyClient{
		logger: logger,
		http:   httpClient,
	}
}

func (c *shopifyClient) check(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return &AuthenticationError{Message: "invalid shopify access token"}
	}
	return &ApiError{
		StatusCode: resp.StatusCode(),
		Message:    utils.Truncate(strings.TrimSpace(string(resp.Body())), 512),
	}
}

func (c *shopifyClient) FindCustomerByPhone(ctx context.Context, phone string) (*Customer, error) {
	var out struct {
		Customers []Customer `json:"customers"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("phone", phone).
		SetResult(&out).
		Get("/customers.json")
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}

	// Shopify's phone filter is fuzzy, keep only an exact match.
	for i := range out.Customers {
		if out.Customers[i].Phone == phone {
			customer := out.Customers[i]
			c.logger.Debugf("resolved customer: phone=%s id=%d", phone, customer.Id)
			return &customer, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, phone)
}

func (c *shopifyClient) OrdersByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", fmt.Sprintf("customer_id:%d", customerID)).
		SetQueryParam("status", "any").
		SetResult(&out).
		Get("/orders.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}

	for i := range out.Orders {
		out.Orders[i].CustomerID = customerID
	}
	c.logger.Debugf("fetched %d orders for customer %d", len(out.Orders), customerID)
	return out.Orders, nil
}

func (c *shopifyClient) Order(ctx context.Context, orderID int64) (*Order, error) {
	var out struct {
		Order *Order `json:"order"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/orders/%d.json", orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, &ApiError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("order %d not found", orderID)}
	}
	return out.Order, nil
}

func (c *shopifyClient) CancelOrder(ctx context.Context, orderID int64, reason string) error {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/orders/%d/cancel.json", orderID))
	if err != nil {
		return fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}
	if err := c.check(resp); err != nil {
		return err
	}
	c.logger.Infof("cancelled order %d: reason=%s", orderID, reason)
	return nil
}

// orderState is the part of an order the update guard needs. cancelled_at is
// a pointer so a null from the API stays distinguishable from an empty value.
type orderState struct {
	Id                int64   `json:"id"`
	FulfillmentStatus string  `json:"fulfillment_status"`
	CancelledAt       *string `json:"cancelled_at"`
}

func (c *shopifyClient) UpdateOrder(ctx context.Context, orderID int64, patch OrderPatch) (*Order, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("no order fields to update")
	}

	var current struct {
		Order *orderState `json:"order"`
	}
	path := fmt.Sprintf("/orders/%d.json", orderID)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&current).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}
	if current.Order == nil {
		return nil, &ApiError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("order %d not found", orderID)}
	}
	if current.Order.FulfillmentStatus == "fulfilled" {
		return nil, fmt.Errorf("%w: %d", ErrOrderFulfilled, orderID)
	}
	if current.Order.CancelledAt != nil {
		return nil, fmt.Errorf("%w: %d", ErrOrderCancelled, orderID)
	}

	order := map[string]interface{}{"id": orderID}
	if patch.Email != "" {
		order["email"] = patch.Email
		order["contact_email"] = patch.Email
	}
	if patch.Phone != "" {
		order["phone"] = patch.Phone
	}
	address := map[string]string{}
	if patch.Address1 != "" {
		address["address1"] = patch.Address1
	}
	if patch.Address2 != "" {
		address["address2"] = patch.Address2
	}
	if patch.City != "" {
		address["city"] = patch.City
	}
	if patch.LastName != "" {
		address["last_name"] = patch.LastName
	}
	if patch.Country != "" {
		address["country"] = patch.Country
	}
	if patch.ProvinceCode != "" {
		address["province_code"] = patch.ProvinceCode
	}
	if patch.Zip != "" {
		address["zip"] = patch.Zip
	}
	if len(address) > 0 {
		order["shipping_address"] = address
	}

	var updated struct {
		Order *Order `json:"order"`
	}
	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"order": order}).
		SetResult(&updated).
		Put(path)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}
	if updated.Order == nil {
		return nil, &ApiError{StatusCode: resp.StatusCode(), Message: fmt.Sprintf("order %d update returned no order", orderID)}
	}

	c.logger.Infof("updated order %d", orderID)
	return updated.Order, nil
}

func (c *shopifyClient) Products(ctx context.Context) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/products.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *shopifyClient) Product(ctx context.Context, productID int64) (*Product, error) {
	var out struct {
		Product *Product `json:"product"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/products/%d.json", productID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, &ApiError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("product %d not found", productID)}
	}
	return out.Product, nil
}

func (c *shopifyClient) Shop(ctx context.Context) (*Shop, error) {
	var out struct {
		Shop *Shop `json:"shop"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/shop.json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shop: %w", err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}
	if out.Shop == nil {
		return nil, &ApiError{StatusCode: resp.StatusCode(), Message: "shop details missing from response"}
	}
	return out.Shop, nil
}
